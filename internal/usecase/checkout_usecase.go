package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"shop/internal/domain/model"
	"shop/internal/logging"
	"shop/internal/notification"
	"shop/internal/payment"
	repo "shop/internal/repository"

	"github.com/shopspring/decimal"
)

// 通知はベストエフォート。Enqueueはブロックしない約束。
type Notifier interface {
	Enqueue(ev notification.OrderConfirmation)
}

// カートを注文＋決済に変換するオーケストレーター。
type CheckoutUsecase struct {
	tx           repo.TransactionManager
	cartItemRepo repo.CartItemRepository
	productRepo  repo.ProductRepository
	userRepo     repo.UserRepository
	gateway      payment.Gateway
	notifier     Notifier
	currency     string
}

func NewCheckoutUsecase(
	tx repo.TransactionManager,
	cartItemRepo repo.CartItemRepository,
	productRepo repo.ProductRepository,
	userRepo repo.UserRepository,
	gateway payment.Gateway,
	notifier Notifier,
	currency string,
) *CheckoutUsecase {
	if currency == "" {
		currency = "usd"
	}
	return &CheckoutUsecase{
		tx:           tx,
		cartItemRepo: cartItemRepo,
		productRepo:  productRepo,
		userRepo:     userRepo,
		gateway:      gateway,
		notifier:     notifier,
		currency:     currency,
	}
}

type PlaceOrderInput struct {
	PaymentMethodID string
}

//決済後に在庫が競合で消えたケース。txを巻き戻して照合に回す。
var errOversold = errors.New("insufficient inventory")

// PlaceOrder はチェックアウト本体。
//  1. カート取得（空なら400、ゲートウェイは呼ばない）
//  2. 合計計算（decimal）＋在庫の事前チェック
//  3. ゲートウェイに課金（最小通貨単位、同期確定）
//  4. 成功したら1トランザクションで注文＋明細作成・在庫減算・カート削除
//  5. 確認メールをバックグラウンドに投げる（失敗しても返さない）
func (u *CheckoutUsecase) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if strings.TrimSpace(in.PaymentMethodID) == "" {
		//バリデーションエラーはゲートウェイ呼び出しより前に返す
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "payment_method_id is required")
	}

	//カート取得
	cartItems, err := u.cartItemRepo.ListByUserID(ctx, userID)
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if len(cartItems) == 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "Cart is empty")
	}

	//合計計算＋現在価格のスナップショット＋在庫の事前チェック
	now := time.Now()
	orderItems := make([]model.OrderItem, 0, len(cartItems))
	total := decimal.Zero

	for _, ci := range cartItems {
		p, err := u.productRepo.FindByID(ctx, ci.ProductID)
		if err == repo.ErrNotFound {
			return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product in cart")
		}
		if err != nil {
			return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//課金前に在庫を見ておく（確定は減算時の条件付きUPDATE）
		if p.InventoryCount < ci.Quantity {
			return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "out of stock")
		}

		orderItems = append(orderItems, model.OrderItem{
			ProductID: ci.ProductID,
			Quantity:  ci.Quantity,
			UnitPrice: p.Price,
			CreatedAt: now,
		})

		total = total.Add(p.Price.Mul(decimal.NewFromInt(ci.Quantity)))
	}

	//ゲートウェイは最小通貨単位（25.00 → 2500）
	amountMinor := total.Shift(2).IntPart()

	charge, err := u.gateway.Charge(ctx, payment.ChargeInput{
		AmountMinor:     amountMinor,
		Currency:        u.currency,
		PaymentMethodID: strings.TrimSpace(in.PaymentMethodID),
	})
	if err != nil {
		//ゲートウェイの拒否/失敗。DBには何も書いていない。
		if ge, ok := payment.AsGatewayError(err); ok {
			return OrderOutput{}, NewHTTPError(http.StatusBadRequest, ge.Message)
		}
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "payment failed")
	}

	//注文処理はトランザクション
	var out OrderOutput

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orderID, err := r.Orders().Create(ctx, model.Order{
			UserID: userID,
			//confirm付きの同期課金なので作成時点でPAID
			Status:          model.OrderStatusPaid,
			TotalAmount:     total,
			PaymentIntentID: charge.ID,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		if err != nil {
			return err
		}

		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return err
		}

		//在庫減算（足りないなら失敗させてロールバック）
		for _, it := range orderItems {
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, it.ProductID, it.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return errOversold
			}
		}

		//カートを空にする
		if err := r.CartItems().DeleteByUserID(ctx, userID); err != nil {
			return err
		}

		created := model.Order{
			ID:              orderID,
			UserID:          userID,
			Status:          model.OrderStatusPaid,
			TotalAmount:     total,
			PaymentIntentID: charge.ID,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		out = toOrderOutput(created, orderItems)
		return nil
	})

	if err != nil {
		//課金は成功している。握りつぶさず照合対象として記録する。
		logging.Log(logging.Fields{
			Service:  "checkout",
			Step:     "persist_order",
			Status:   "reconciliation_required",
			UserID:   userID,
			ChargeID: charge.ID,
			Amount:   total.StringFixed(2),
			Message:  err.Error(),
		})
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "order could not be finalized")
	}

	logging.Log(logging.Fields{
		Service:  "checkout",
		Step:     "place_order",
		Status:   "ok",
		UserID:   userID,
		OrderID:  out.ID,
		ChargeID: charge.ID,
		Amount:   total.StringFixed(2),
	})

	//確認メール（fire-and-forget）
	if u.notifier != nil {
		if user, err := u.userRepo.FindByID(ctx, userID); err == nil {
			u.notifier.Enqueue(notification.OrderConfirmation{
				Email:       user.Email,
				OrderID:     out.ID,
				TotalAmount: total,
			})
		}
	}

	return out, nil
}
