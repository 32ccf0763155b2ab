package main

import (
	"jobfair/internal/bookings/admission"
	"jobfair/internal/bookings/events"
	bookingHandler "jobfair/internal/bookings/handler"
	bookingRepository "jobfair/internal/bookings/repository"
	bookingService "jobfair/internal/bookings/service"
	bookingValidator "jobfair/internal/bookings/validator"
	companyHandler "jobfair/internal/companies/handler"
	companyRepository "jobfair/internal/companies/repository"
	companyService "jobfair/internal/companies/service"
	companyValidator "jobfair/internal/companies/validator"
	userHandler "jobfair/internal/users/handler"
	userRepository "jobfair/internal/users/repository"
	userService "jobfair/internal/users/service"
	userValidator "jobfair/internal/users/validator"
	"jobfair/pkg/app"
	"jobfair/pkg/auth"
	"jobfair/pkg/config"
	"jobfair/pkg/kafka"
	kafka_config "jobfair/pkg/kafka/config"
	kafka_middleware "jobfair/pkg/kafka/middleware"
	"jobfair/pkg/middleware"
)

const (
	ServiceName = "bookings"
	TokenIssuer = "jobfair"
)

func main() {
	cfg := config.Load(ServiceName)
	if cfg.JWTSecret == "" {
		cfg.Log.Fatal("JWT_SECRET must be set")
	}
	cfg.SetMongo()

	cfg.Log.Info("Starting Bookings service")
	serverApp := app.NewApplication(cfg)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpire, TokenIssuer)
	userRepo := userRepository.NewMongoUserRepository(cfg)
	users := userService.NewUserService(userRepo, tokens, userValidator.NewUserValidator(cfg.Log), cfg)
	authenticator := middleware.NewAuthenticator(tokens, users, cfg.Log)

	companyRepo := companyRepository.NewMongoCompanyRepository(cfg)
	companies := companyService.NewCompanyService(companyRepo, companyValidator.NewCompanyValidator(cfg.Log), cfg)

	publisher := initPublisher(cfg, serverApp)
	bookings := initBookingService(cfg, companyRepo, userRepo, publisher)

	serverApp.SetApp(
		userHandler.NewUserHandler(users, authenticator, cfg.Log),
		companyHandler.NewCompanyHandler(companies, authenticator, cfg.Log),
		bookingHandler.NewBookingHandler(bookings, authenticator, cfg.Log),
	)
	serverApp.Run()
}

func initBookingService(
	cfg *config.Config,
	companies bookingService.CompanyLookup,
	users bookingService.UserLookup,
	publisher events.Publisher,
) bookingService.BookingService {
	engine := admission.NewEngine(
		admission.Window{Min: cfg.EventDateMin, Max: cfg.EventDateMax},
		cfg.MaxBookingsPerUser,
	)

	svc := bookingService.NewBookingService(
		bookingRepository.NewMongoBookingRepository(cfg),
		bookingRepository.NewBookingLockRepository(cfg),
		companies,
		users,
		engine,
		bookingValidator.NewBookingValidator(cfg.Log),
		publisher,
		cfg,
	)

	cfg.Log.Info("Booking service initialized",
		"database", cfg.MongoDatabaseName,
		"event_date_min", cfg.EventDateMin,
		"event_date_max", cfg.EventDateMax,
		"max_bookings_per_user", cfg.MaxBookingsPerUser,
	)
	return svc
}

// initPublisher returns a Kafka publisher when booking events are enabled. The
// producer is closed by the application on shutdown.
func initPublisher(cfg *config.Config, serverApp *app.Application) events.Publisher {
	if !cfg.BookingEventsEnabled {
		cfg.Log.Info("Booking events disabled")
		return events.NoopPublisher{}
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.BookingEventsTopic, cfg.BookingEventsDLQ, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create kafka producer", "error", err)
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	serverApp.OnShutdown(producer)

	cfg.Log.Info("Booking events enabled", "topic", cfg.BookingEventsTopic)
	return events.NewKafkaPublisher(producer)
}
