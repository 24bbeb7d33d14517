package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/config"
	"storefront/internal/domain/model"
	"storefront/internal/domain/pricing"
	"storefront/internal/handler"
	"storefront/internal/infra/cache"
	"storefront/internal/infra/db"
	"storefront/internal/infra/mail"
	"storefront/internal/infra/payment"
	"storefront/internal/infra/rabbitmq"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/infra/shipping"
	"storefront/internal/infra/storage"
	"storefront/internal/infra/system"
	"storefront/internal/logger"
	"storefront/internal/repository"
	"storefront/internal/server"
	"storefront/internal/usecase"
	"storefront/internal/validator"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const eventsExchange = "storefront.events"

func main() {
	// .env は無くてもよい（環境変数を直接渡す場合）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("config")
	}
	logger.Setup(cfg.GoEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg.DSN())
	if err != nil {
		log.WithError(err).Fatal("db connect")
	}
	if err := db.Migrate(gormDB); err != nil {
		log.WithError(err).Fatal("db migrate")
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	couponRepo := infraRepo.NewCouponGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	returnRepo := infraRepo.NewReturnGormRepository(gormDB)
	addressRepo := infraRepo.NewAddressGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	analyticsRepo := infraRepo.NewAnalyticsGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	clock := system.Clock{}
	ids := system.UUIDGenerator{}

	//Redis（無ければメモリ / キャッシュなし）
	var carts repository.CartStore = cache.NewMemoryCartStore()
	var couponCache usecase.CouponCache = cache.NopCouponCache{}
	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.WithError(err).Fatal("redis")
		}
		defer rdb.Close()
		carts = cache.NewRedisCartStore(rdb)
		couponCache = cache.NewRedisCouponCache(rdb)
	}

	//MinIO（無ければアップロードは 503、ラベルは追跡番号のみ）
	var objects usecase.ObjectStorage
	if cfg.MinIO.Endpoint != "" {
		st, err := storage.NewMinioStorage(ctx, cfg.MinIO)
		if err != nil {
			log.WithError(err).Fatal("minio")
		}
		objects = st
	}

	//メール
	var notifier usecase.Notifier = mail.NopNotifier{}
	if cfg.SMTP.Host != "" {
		m, err := mail.NewMailer(cfg.SMTP)
		if err != nil {
			log.WithError(err).Fatal("smtp")
		}
		notifier = m
	}

	//イベント
	var events usecase.EventPublisher = rabbitmq.NopPublisher{}
	if cfg.RabbitMQ != "" {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitMQ, eventsExchange)
		if err != nil {
			log.WithError(err).Fatal("rabbitmq")
		}
		defer pub.Close()
		events = pub
	}

	//決済（鍵が無いものは登録しない）
	gateways := map[model.PaymentMethod]usecase.PaymentGateway{}
	if cfg.ESewa.SecretKey != "" {
		gateways[model.PaymentESewa] = payment.WithBreaker("esewa", payment.NewESewa(cfg.ESewa, cfg.Payment))
	}
	if cfg.Khalti.SecretKey != "" {
		gateways[model.PaymentKhalti] = payment.WithBreaker("khalti", payment.NewKhalti(cfg.Khalti, cfg.Payment))
	}

	labeler := shipping.NewLabeler(cfg.Shipping.Carrier, objects, ids, clock)
	shippingPolicy := pricing.ShippingPolicy{
		Valley:  model.NewMoney(cfg.Shipping.ValleyPrice),
		Outside: model.NewMoney(cfg.Shipping.OutsidePrice),
	}

	//Usecase生成
	authUC := usecase.NewAuthUsecase(
		userRepo,
		usecase.NewBcryptPasswordHasher(bcrypt.DefaultCost),
		usecase.NewJWTIssuer(cfg.JWTSecret, 0),
		validator.NewAuthValidator(userRepo),
		clock,
	)
	productUC := usecase.NewProductUsecase(productRepo, txm, clock)
	cartUC := usecase.NewCartUsecase(carts, productRepo, clock)
	couponUC := usecase.NewCouponUsecase(couponRepo, txm, couponCache, clock)
	orderUC := usecase.NewOrderUsecase(usecase.OrderUsecaseDeps{
		Tx:        txm,
		Orders:    orderRepo,
		Addresses: addressRepo,
		Users:     userRepo,
		Carts:     carts,
		Gateways:  gateways,
		Notifier:  notifier,
		Events:    events,
		Shipping:  shippingPolicy,
		Clock:     clock,
		IDs:       ids,
	})
	adminOrderUC := usecase.NewAdminOrderUsecase(txm, orderRepo, userRepo, labeler, notifier, events, clock)
	returnUC := usecase.NewReturnUsecase(txm, returnRepo, payment.LoggingReverser{}, events, clock)
	addressUC := usecase.NewAddressUsecase(addressRepo, clock)
	uploadUC := usecase.NewUploadUsecase(objects, ids)
	adminUC := usecase.NewAdminUsecase(userRepo, auditRepo, authUC, clock)
	dashboardUC := usecase.NewDashboardUsecase(analyticsRepo, clock)

	//Handler生成
	e := server.New(server.Handlers{
		Auth:         handler.NewAuthHandler(authUC),
		Product:      handler.NewProductHandler(productUC),
		AdminProduct: handler.NewAdminProductHandler(productUC),
		Cart:         handler.NewCartHandler(cartUC),
		Coupon:       handler.NewCouponHandler(couponUC),
		Order:        handler.NewOrderHandler(orderUC),
		AdminOrder:   handler.NewAdminOrderHandler(adminOrderUC),
		Return:       handler.NewReturnHandler(returnUC),
		Address:      handler.NewAddressHandler(addressUC),
		Upload:       handler.NewUploadHandler(uploadUC),
		AdminUser:    handler.NewAdminUserHandler(adminUC, dashboardUC),
	}, server.NewMiddlewares(cfg.JWTSecret, userRepo))
	e.Debug = !cfg.IsProd()

	//Server起動
	if err := server.Start(ctx, e, ":"+cfg.Port); err != nil {
		log.WithError(err).Fatal("server")
	}
}
