package main

import (
	"github.com/joho/godotenv"

	bookingshandler "atelier/internal/bookings/handler"
	bookingsrepo "atelier/internal/bookings/repository"
	bookingsservice "atelier/internal/bookings/service"
	bookingsvalidator "atelier/internal/bookings/validator"
	contactshandler "atelier/internal/contacts/handler"
	contactsrepo "atelier/internal/contacts/repository"
	contactsservice "atelier/internal/contacts/service"
	ordershandler "atelier/internal/orders/handler"
	ordersrepo "atelier/internal/orders/repository"
	ordersservice "atelier/internal/orders/service"
	paymentshandler "atelier/internal/payments/handler"
	paymentsservice "atelier/internal/payments/service"
	productshandler "atelier/internal/products/handler"
	productsrepo "atelier/internal/products/repository"
	productsservice "atelier/internal/products/service"
	productsvalidator "atelier/internal/products/validator"
	subscriptionshandler "atelier/internal/subscriptions/handler"
	subscriptionsrepo "atelier/internal/subscriptions/repository"
	subscriptionsservice "atelier/internal/subscriptions/service"
	usershandler "atelier/internal/users/handler"
	usersrepo "atelier/internal/users/repository"
	usersservice "atelier/internal/users/service"
	"atelier/pkg/app"
	"atelier/pkg/auth"
	"atelier/pkg/config"
	"atelier/pkg/event"
	"atelier/pkg/mail"
	"atelier/pkg/payment"
)

const ServiceName = "atelier"

func main() {
	_ = godotenv.Load()

	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	serverApp := app.NewApplication(cfg)

	notifier := newNotifier(cfg)
	events := newEventBus(cfg, serverApp)
	provider := newPaymentProvider(cfg)
	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)

	handlers := initHandlers(cfg, notifier, events, provider, issuer)

	serverApp.SetApp(app.NewRouter(handlers, issuer, cfg.Log))
	serverApp.Run()
}

func newNotifier(cfg *config.Config) *mail.Notifier {
	var sender mail.Sender
	if cfg.SMTPHost != "" {
		sender = mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.EmailFrom)
		cfg.Log.Info("SMTP mail transport configured", "host", cfg.SMTPHost)
	} else {
		sender = mail.NewLogSender(cfg.Log)
		cfg.Log.Warn("No SMTP host configured, emails will only be logged")
	}
	return mail.NewNotifier(sender, cfg.AdminEmail, cfg.FrontendURL, cfg.Log)
}

func newEventBus(cfg *config.Config, serverApp *app.Application) event.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		cfg.Log.Warn("No Kafka brokers configured, events will be dropped")
		return event.NoopPublisher{}
	}

	producer, err := event.NewProducer(cfg.KafkaBrokers, cfg.KafkaEventTopic, cfg.KafkaDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create event producer", "error", err)
	}
	serverApp.OnShutdown(producer.Close)
	cfg.Log.Info("Event bus configured",
		"brokers", cfg.KafkaBrokers,
		"topic", cfg.KafkaEventTopic,
	)
	return event.NewBus(producer, ServiceName, cfg.Log)
}

func newPaymentProvider(cfg *config.Config) payment.Provider {
	if cfg.PaymentSecretKey == "" {
		cfg.Log.Warn("No payment secret key configured, using stub provider")
		return payment.NewStubProvider()
	}

	provider, err := payment.NewOmiseProvider(cfg.PaymentPublicKey, cfg.PaymentSecretKey, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create payment provider", "error", err)
	}
	return provider
}

func initHandlers(
	cfg *config.Config,
	notifier *mail.Notifier,
	events event.Publisher,
	provider payment.Provider,
	issuer *auth.TokenIssuer,
) app.Handlers {
	bookingRepo := bookingsrepo.NewMongoBookingRepository(cfg)
	bookingLockRepo := bookingsrepo.NewBookingLockRepository(cfg)
	bookingService := bookingsservice.NewBookingService(
		bookingRepo,
		bookingLockRepo,
		bookingsvalidator.NewBookingValidator(cfg.Log),
		notifier,
		events,
		cfg,
	)

	paymentService := paymentsservice.NewPaymentService(bookingRepo, provider, notifier, events, cfg)

	productRepo := productsrepo.NewMongoProductRepository(cfg)
	productService := productsservice.NewProductService(
		productRepo,
		productsvalidator.NewProductValidator(cfg.Log),
		cfg,
	)

	orderRepo := ordersrepo.NewMongoOrderRepository(cfg)
	orderService := ordersservice.NewOrderService(orderRepo, productService, provider, notifier, events, cfg)

	contactRepo := contactsrepo.NewMongoContactRepository(cfg)
	contactService := contactsservice.NewContactService(contactRepo, notifier, events, cfg)

	subscriptionRepo := subscriptionsrepo.NewMongoSubscriptionRepository(cfg)
	subscriptionService := subscriptionsservice.NewSubscriptionService(subscriptionRepo, notifier, events, cfg)

	userRepo := usersrepo.NewMongoUserRepository(cfg)
	userService := usersservice.NewUserService(userRepo, issuer, notifier, cfg)

	cfg.Log.Info("Services initialized", "database", cfg.MongoDatabaseName)

	return app.Handlers{
		Bookings:      bookingshandler.NewBookingHandler(bookingService, cfg.Log),
		Payments:      paymentshandler.NewPaymentHandler(paymentService, cfg.Log),
		Orders:        ordershandler.NewOrderHandler(orderService, cfg.Log),
		Products:      productshandler.NewProductHandler(productService, cfg.Log),
		Contacts:      contactshandler.NewContactHandler(contactService, cfg.Log),
		Subscriptions: subscriptionshandler.NewSubscriptionHandler(subscriptionService, cfg.Log),
		Users:         usershandler.NewUserHandler(userService, cfg.Log),
	}
}
