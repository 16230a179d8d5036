package repository

import (
	"context"

	"shop/internal/domain/model"
)

// カート明細。更新系は必ずuser_idで絞る（他人の行は触れない）。
type CartItemRepository interface {
	ListByUserID(ctx context.Context, userID int64) ([]model.CartItem, error)
	// 同一商品はプラス
	UpsertByUserAndProduct(ctx context.Context, userID int64, productID int64, addQty int64) error
	UpdateQuantity(ctx context.Context, cartItemID int64, userID int64, qty int64) error
	DeleteByID(ctx context.Context, cartItemID int64, userID int64) error
	// チェックアウト成功時の全削除
	DeleteByUserID(ctx context.Context, userID int64) error
}
