package main

import (
	"shop/internal/config"
	"shop/internal/domain/model"
	"shop/internal/handler"
	"shop/internal/infra/cache"
	"shop/internal/infra/db"
	infraRepo "shop/internal/infra/repository"
	"shop/internal/notification"
	"shop/internal/payment"
	"shop/internal/server"
	"shop/internal/usecase"

	"github.com/joho/godotenv"
)

func main() {
	//.envは無ければ環境変数だけで動く
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		panic(err)
	}
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
	); err != nil {
		panic(err)
	}

	//Repository（GORM実装）生成
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	cartItemRepo := infraRepo.NewCartItemGormRepository(gormDB)
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//商品詳細キャッシュ（REDIS_ADDR未設定なら無効）
	var productCache *cache.ProductCache
	if cfg.RedisAddr != "" {
		productCache = cache.NewProductCache(cache.New(cfg.RedisAddr))
	}

	//決済ゲートウェイ
	gateway := payment.NewStripeClient(cfg.StripeSecretKey, cfg.StripeReturnURL)

	//通知（SMTP未設定ならログのみ）
	var mailer notification.Mailer
	if cfg.SMTPHost != "" {
		mailer = notification.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	}
	dispatcher := notification.NewDispatcher(mailer, 64)
	defer dispatcher.Close()

	//Usecase生成
	productUC := usecase.NewProductUsecase(productRepo, productCache)
	cartUC := usecase.NewCartUsecase(cartItemRepo, productRepo)
	orderUC := usecase.NewOrderUsecase(txManager)
	checkoutUC := usecase.NewCheckoutUsecase(
		txManager, cartItemRepo, productRepo, userRepo,
		gateway, dispatcher, cfg.StripeCurrency,
	)

	//Handler生成
	productH := handler.NewProductHandler(productUC)
	cartH := handler.NewCartHandler(cartUC)
	orderH := handler.NewOrderHandler(orderUC, checkoutUC)

	//Server起動
	e := server.New(cfg, productH, cartH, orderH)

	addr := cfg.Port
	if addr[0] != ':' {
		addr = ":" + addr
	}

	if err := server.Start(e, addr); err != nil {
		panic(err)
	}
}
