package routes

import (
	"github.com/julienschmidt/httprouter"

	"wanderlust/admin"
	"wanderlust/auth"
	"wanderlust/bookings"
	"wanderlust/home"
	"wanderlust/media"
	"wanderlust/middleware"
	"wanderlust/packages"
	"wanderlust/pay"
	"wanderlust/ratelim"
	"wanderlust/users"
)

// Deps are the handlers the router mounts. All fields are required.
type Deps struct {
	Packages    *packages.Handler
	Bookings    *bookings.Handler
	Payments    *pay.PaymentService
	Idempotency pay.IdempotencyStore
	Media       *media.Handler
	Auth        *auth.Handler
	Users       *users.Handler
	Dashboard   *admin.Handler
	Home        *home.Handler
	LiveFeed    httprouter.Handle
	// Limiter throttles the write endpoints customers can hammer.
	Limiter *ratelim.RateLimiter
}

func RoutesWrapper(router *httprouter.Router, d Deps) {
	AddPackageRoutes(router, d)
	AddHomeRoutes(router, d)
	AddAuthRoutes(router, d)
	AddBookingRoutes(router, d)
	AddPayRoutes(router, d)
	AddAdminRoutes(router, d)
}

func AddPackageRoutes(router *httprouter.Router, d Deps) {
	router.GET("/api/packages", d.Packages.ListPackages)
	router.GET("/api/packages/:slug", d.Packages.GetPackage)
	router.GET("/api/featured/packages", d.Packages.FeaturedPackages)
	router.GET("/api/locations", d.Packages.Locations)
}

func AddHomeRoutes(router *httprouter.Router, d Deps) {
	router.GET("/api/home", d.Home.All)
	router.GET("/api/home/:section", d.Home.Get)
}

func AddAuthRoutes(router *httprouter.Router, d Deps) {
	router.POST("/api/auth/sync", middleware.Chain(d.Limiter.Limit, middleware.Authenticate)(d.Auth.Sync))
	router.GET("/api/auth/me", middleware.RequireUser(d.Auth.Me))
}

func AddBookingRoutes(router *httprouter.Router, d Deps) {
	router.POST("/api/bookings", middleware.Chain(d.Limiter.Limit, middleware.RequireUser)(d.Bookings.Create))
	router.GET("/api/bookings", middleware.RequireUser(d.Bookings.Mine))
	router.GET("/api/bookings/:id", middleware.RequireUser(d.Bookings.Get))
	router.PUT("/api/bookings/:id/cancel", middleware.RequireUser(d.Bookings.Cancel))
	router.GET("/api/bookings/:id/voucher", middleware.RequireUser(d.Bookings.Voucher))
}

func AddAdminRoutes(router *httprouter.Router, d Deps) {
	admin := middleware.RequireAdmin

	router.GET("/api/admin/dashboard", admin(d.Dashboard.Dashboard))

	router.GET("/api/admin/packages", admin(d.Packages.ListPackages))
	router.POST("/api/admin/packages", admin(d.Packages.CreatePackage))
	router.PUT("/api/admin/packages/:id", admin(d.Packages.UpdatePackage))
	router.DELETE("/api/admin/packages/:id", admin(d.Packages.DeletePackage))

	router.POST("/api/admin/media", admin(d.Media.Upload))

	router.GET("/api/admin/bookings", admin(d.Bookings.AdminList))
	router.GET("/api/admin/bookings/live", admin(d.LiveFeed))
	router.PUT("/api/admin/bookings/:id/status", admin(d.Bookings.AdminUpdateStatus))
	router.POST("/api/admin/vouchers/verify", admin(d.Bookings.VerifyVoucher))

	router.GET("/api/admin/users", admin(d.Users.List))
	router.GET("/api/admin/users/:id", admin(d.Users.Get))
	router.PUT("/api/admin/users/:id/role", admin(d.Users.UpdateRole))

	router.PUT("/api/admin/home/:section", admin(d.Home.Put))
}
