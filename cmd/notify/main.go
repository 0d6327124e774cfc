// The notify worker consumes domain events and turns them into back-office
// email alerts. It runs next to the API server and shares its topic; retries
// and dead-lettering are handled by the consumer.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"atelier/pkg/config"
	"atelier/pkg/event"
	"atelier/pkg/mail"
)

const WorkerName = "notify-worker"

func main() {
	_ = godotenv.Load()

	cfg := config.Load(WorkerName)
	if len(cfg.KafkaBrokers) == 0 {
		cfg.Log.Fatal("Notify worker requires Kafka brokers")
	}

	notifier := newNotifier(cfg)

	consumer, err := event.NewConsumer(
		cfg.KafkaBrokers,
		cfg.KafkaEventTopic,
		cfg.KafkaGroupID,
		cfg.KafkaDLQTopic,
		alertHandler(notifier),
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create consumer", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-shutdown
		cfg.Log.Info("Shutdown signal received", "signal", sig)
		cancel()
	}()

	cfg.Log.Info("Notify worker started",
		"brokers", cfg.KafkaBrokers,
		"topic", cfg.KafkaEventTopic,
		"group", cfg.KafkaGroupID,
	)

	if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
		cfg.Log.Error("Consumer stopped", "error", err)
	}
	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close consumer", "error", err)
	}
	cfg.Log.Info("Notify worker stopped")
}

func newNotifier(cfg *config.Config) *mail.Notifier {
	var sender mail.Sender
	if cfg.SMTPHost != "" {
		sender = mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.EmailFrom)
	} else {
		sender = mail.NewLogSender(cfg.Log)
		cfg.Log.Warn("No SMTP host configured, alerts will only be logged")
	}
	return mail.NewNotifier(sender, cfg.AdminEmail, cfg.FrontendURL, cfg.Log)
}

// alertHandler maps each event type to an admin alert. Unknown types are
// acknowledged without an email so new producers never wedge the worker.
func alertHandler(notifier *mail.Notifier) event.Handler {
	subjects := map[string]string{
		event.TypeBookingCreated:       "New booking received",
		event.TypeBookingStatusChanged: "Booking status changed",
		event.TypeBookingCancelled:     "Booking cancelled",
		event.TypeOrderCreated:         "New order received",
		event.TypeContactReceived:      "New contact message",
		event.TypeSubscriptionCreated:  "New newsletter subscription",
		event.TypePaymentPaid:          "Payment received",
		event.TypePaymentFailed:        "Payment failed",
		event.TypePaymentRefunded:      "Payment refunded",
	}

	return func(ctx context.Context, msg event.Message) error {
		env, err := msg.Decode()
		if err != nil {
			return fmt.Errorf("failed to decode event: %w", err)
		}

		subject, ok := subjects[env.Type]
		if !ok {
			return nil
		}

		notifier.AdminAlert(ctx, subject, formatPayload(env))
		return nil
	}
}

func formatPayload(env event.Envelope) string {
	body := fmt.Sprintf("Event %s (%s) from %s at %s",
		env.ID, env.Type, env.Source, env.OccurredAt.Format("2006-01-02 15:04:05"))
	for key, value := range env.Payload {
		body += fmt.Sprintf("\n%s: %v", key, value)
	}
	return body
}
