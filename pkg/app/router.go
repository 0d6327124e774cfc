package app

import (
	"github.com/julienschmidt/httprouter"

	bookingshandler "atelier/internal/bookings/handler"
	contactshandler "atelier/internal/contacts/handler"
	ordershandler "atelier/internal/orders/handler"
	paymentshandler "atelier/internal/payments/handler"
	productshandler "atelier/internal/products/handler"
	subscriptionshandler "atelier/internal/subscriptions/handler"
	usershandler "atelier/internal/users/handler"
	"atelier/pkg/auth"
	"atelier/pkg/logger"
)

// Handlers bundles every resource handler for route registration.
type Handlers struct {
	Bookings      *bookingshandler.BookingHandler
	Payments      *paymentshandler.PaymentHandler
	Orders        *ordershandler.OrderHandler
	Products      *productshandler.ProductHandler
	Contacts      *contactshandler.ContactHandler
	Subscriptions *subscriptionshandler.SubscriptionHandler
	Users         *usershandler.UserHandler
}

// NewRouter wires all resource routes. Static segments come before the
// id/:id wildcard to keep httprouter's tree free of conflicts. Back-office
// routes require an admin token; customer-facing routes stay open.
func NewRouter(h Handlers, issuer *auth.TokenIssuer, log *logger.Logger) *httprouter.Router {
	router := httprouter.New()

	admin := func(next httprouter.Handle) httprouter.Handle {
		return auth.RequireAdmin(issuer, log, next)
	}
	protected := func(next httprouter.Handle) httprouter.Handle {
		return auth.Protect(issuer, log, next)
	}

	// Auth.
	router.POST("/api/v1/auth/register", h.Users.Register)
	router.POST("/api/v1/auth/login", h.Users.Login)

	// Current user.
	router.GET("/api/v1/users/me", protected(h.Users.Me))
	router.PUT("/api/v1/users/me", protected(h.Users.UpdateMe))
	router.DELETE("/api/v1/users/me", protected(h.Users.DeactivateMe))

	// User administration.
	router.GET("/api/v1/users", admin(h.Users.GetAll))
	router.GET("/api/v1/users/statistics/monthly", admin(h.Users.MonthlyStatistics))
	router.GET("/api/v1/users/id/:id", admin(h.Users.GetByID))
	router.PUT("/api/v1/users/id/:id", admin(h.Users.Update))
	router.POST("/api/v1/users/id/:id/promote", admin(h.Users.Promote))
	router.DELETE("/api/v1/users/id/:id", admin(h.Users.Delete))

	// Bookings. Creation is customer-facing; management is back office.
	router.POST("/api/v1/bookings", h.Bookings.Create)
	router.GET("/api/v1/bookings", admin(h.Bookings.GetAll))
	router.GET("/api/v1/bookings/upcoming", admin(h.Bookings.GetUpcoming))
	router.GET("/api/v1/bookings/statistics", admin(h.Bookings.Statistics))
	router.GET("/api/v1/bookings/id/:id", h.Bookings.GetByID)
	router.PATCH("/api/v1/bookings/id/:id", admin(h.Bookings.Update))
	router.PATCH("/api/v1/bookings/id/:id/status", admin(h.Bookings.UpdateStatus))
	router.DELETE("/api/v1/bookings/id/:id", admin(h.Bookings.Delete))

	// Booking payments.
	router.POST("/api/v1/bookings/id/:id/payment", h.Payments.Create)
	router.GET("/api/v1/bookings/id/:id/payment", h.Payments.Get)
	router.PATCH("/api/v1/bookings/id/:id/payment/status", admin(h.Payments.UpdateStatus))
	router.POST("/api/v1/bookings/id/:id/payment/refund", admin(h.Payments.Refund))

	// Orders.
	router.POST("/api/v1/orders", h.Orders.Create)
	router.GET("/api/v1/orders", admin(h.Orders.GetAll))
	router.GET("/api/v1/orders/statistics", admin(h.Orders.Statistics))
	router.GET("/api/v1/orders/id/:id", h.Orders.GetByID)
	router.PATCH("/api/v1/orders/id/:id/status", admin(h.Orders.UpdateStatus))
	router.PATCH("/api/v1/orders/id/:id/payment/status", admin(h.Orders.UpdatePaymentStatus))
	router.DELETE("/api/v1/orders/id/:id", admin(h.Orders.Delete))

	// Products. The catalog is public; mutations are back office.
	router.GET("/api/v1/products", h.Products.GetAll)
	router.GET("/api/v1/products/statistics", admin(h.Products.Statistics))
	router.GET("/api/v1/products/id/:id", h.Products.GetByID)
	router.POST("/api/v1/products", admin(h.Products.Create))
	router.PUT("/api/v1/products/id/:id", admin(h.Products.Update))
	router.DELETE("/api/v1/products/id/:id", admin(h.Products.Delete))

	// Contact form.
	router.POST("/api/v1/contacts", h.Contacts.Submit)
	router.GET("/api/v1/contacts", admin(h.Contacts.GetAll))
	router.GET("/api/v1/contacts/statistics", admin(h.Contacts.Statistics))
	router.GET("/api/v1/contacts/id/:id", admin(h.Contacts.GetByID))
	router.PATCH("/api/v1/contacts/id/:id/status", admin(h.Contacts.UpdateStatus))
	router.DELETE("/api/v1/contacts/id/:id", admin(h.Contacts.Delete))

	// Newsletter subscriptions.
	router.POST("/api/v1/subscriptions", h.Subscriptions.Subscribe)
	router.GET("/api/v1/subscriptions/verify/:token", h.Subscriptions.Verify)
	router.GET("/api/v1/subscriptions", admin(h.Subscriptions.GetAll))
	router.GET("/api/v1/subscriptions/statistics/monthly", admin(h.Subscriptions.MonthlyStatistics))
	router.GET("/api/v1/subscriptions/id/:id", admin(h.Subscriptions.GetByID))
	router.PUT("/api/v1/subscriptions/id/:id", admin(h.Subscriptions.Update))
	router.DELETE("/api/v1/subscriptions/id/:id", admin(h.Subscriptions.Delete))

	return router
}
