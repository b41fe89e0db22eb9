package routes

import (
	"net/http"

	"linkedevents/events"
	"linkedevents/feedback"
	"linkedevents/images"
	"linkedevents/keywords"
	"linkedevents/languages"
	"linkedevents/middleware"
	"linkedevents/organizations"
	"linkedevents/places"
	"linkedevents/ratelim"
	"linkedevents/registrations"
	"linkedevents/search"

	"github.com/julienschmidt/httprouter"
)

// The API answers under /v1 and under the legacy /v0.1 prefix with identical
// semantics.
var apiRoots = []string{"/v1", "/v0.1"}

func register(router *httprouter.Router, method, path string, handle httprouter.Handle) {
	for _, root := range apiRoots {
		router.Handle(method, root+path, handle)
	}
}

func AddStaticRoutes(router *httprouter.Router) {
	router.ServeFiles("/eventimages/*filepath", http.Dir("static/eventimages"))
}

func AddEventRoutes(router *httprouter.Router) {
	register(router, http.MethodGet, "/event/", ratelim.RateLimit(middleware.OptionalAuth(events.GetEvents)))
	register(router, http.MethodGet, "/event/:id/", middleware.OptionalAuth(events.GetEvent))
	register(router, http.MethodPost, "/event/", ratelim.RateLimit(middleware.Authenticate(events.CreateEvent)))
	register(router, http.MethodPut, "/event/", ratelim.RateLimit(middleware.Authenticate(events.BulkUpdateEvents)))
	register(router, http.MethodPut, "/event/:id/", middleware.Authenticate(events.UpdateEvent))
	register(router, http.MethodDelete, "/event/:id/", middleware.Authenticate(events.DeleteEvent))
	register(router, http.MethodPost, "/event/:id/recurrence/", middleware.Authenticate(events.CreateRecurrence))
}

func AddPlaceRoutes(router *httprouter.Router) {
	register(router, http.MethodGet, "/place/", ratelim.RateLimit(places.GetPlaces))
	register(router, http.MethodGet, "/place/:id/", places.GetPlace)
	register(router, http.MethodPost, "/place/", middleware.Authenticate(places.CreatePlace))
	register(router, http.MethodPut, "/place/:id/", middleware.Authenticate(places.UpdatePlace))
	register(router, http.MethodDelete, "/place/:id/", middleware.Authenticate(places.DeletePlace))
}

func AddKeywordRoutes(router *httprouter.Router) {
	register(router, http.MethodGet, "/keyword/", ratelim.RateLimit(keywords.GetKeywords))
	register(router, http.MethodGet, "/keyword/:id/", keywords.GetKeyword)
	register(router, http.MethodPost, "/keyword/", middleware.Authenticate(keywords.CreateKeyword))
	register(router, http.MethodPut, "/keyword/:id/", middleware.Authenticate(keywords.UpdateKeyword))
	register(router, http.MethodDelete, "/keyword/:id/", middleware.Authenticate(keywords.DeleteKeyword))

	register(router, http.MethodGet, "/keyword_set/", keywords.GetKeywordSets)
	register(router, http.MethodGet, "/keyword_set/:id/", keywords.GetKeywordSet)
	register(router, http.MethodPost, "/keyword_set/", middleware.Authenticate(keywords.CreateKeywordSet))
	register(router, http.MethodDelete, "/keyword_set/:id/", middleware.Authenticate(keywords.DeleteKeywordSet))
}

func AddOrganizationRoutes(router *httprouter.Router) {
	register(router, http.MethodGet, "/organization/", organizations.GetOrganizations)
	register(router, http.MethodGet, "/organization/:id/", organizations.GetOrganization)
	register(router, http.MethodPost, "/organization/", middleware.Authenticate(organizations.CreateOrganization))
	register(router, http.MethodPut, "/organization/:id/", middleware.Authenticate(organizations.UpdateOrganization))
	register(router, http.MethodDelete, "/organization/:id/", middleware.Authenticate(organizations.DeleteOrganization))
	register(router, http.MethodGet, "/organization/:id/merchants/", middleware.Authenticate(organizations.GetMerchants))
	register(router, http.MethodGet, "/organization/:id/accounts/", middleware.Authenticate(organizations.GetAccounts))
}

func AddRegistrationRoutes(router *httprouter.Router) {
	register(router, http.MethodGet, "/registration/", registrations.GetRegistrations)
	register(router, http.MethodGet, "/registration/:id/", registrations.GetRegistration)
	register(router, http.MethodPost, "/registration/", middleware.Authenticate(registrations.CreateRegistration))
	register(router, http.MethodPut, "/registration/:id/", middleware.Authenticate(registrations.UpdateRegistration))
	register(router, http.MethodDelete, "/registration/:id/", middleware.Authenticate(registrations.DeleteRegistration))
	register(router, http.MethodPost, "/registration/:id/reserve-seats/", ratelim.RateLimit(registrations.ReserveSeats))
	register(router, http.MethodPost, "/registration/:id/send-message/", middleware.Authenticate(registrations.SendMessage))
	register(router, http.MethodGet, "/registration/:id/signup/", middleware.Authenticate(registrations.GetSignUps))

	register(router, http.MethodPost, "/signup/", ratelim.RateLimit(registrations.CreateSignUp))
	register(router, http.MethodGet, "/signup/:id/", middleware.OptionalAuth(registrations.GetSignUp))
	register(router, http.MethodDelete, "/signup/:id/", registrations.DeleteSignUp)
	register(router, http.MethodGet, "/signup/:id/qr/", registrations.SignUpQR)
}

func AddImageRoutes(router *httprouter.Router) {
	register(router, http.MethodGet, "/image/", images.GetImages)
	register(router, http.MethodGet, "/image/:id/", images.GetImage)
	register(router, http.MethodPost, "/image/", ratelim.RateLimit(middleware.Authenticate(images.UploadImage)))
	register(router, http.MethodDelete, "/image/:id/", middleware.Authenticate(images.DeleteImage))
}

func AddSearchRoutes(router *httprouter.Router) {
	register(router, http.MethodGet, "/search/", ratelim.RateLimit(search.Search))
}

func AddLanguageRoutes(router *httprouter.Router) {
	register(router, http.MethodGet, "/language/", languages.GetLanguages)
	register(router, http.MethodGet, "/language/:id/", languages.GetLanguage)
}

func AddFeedbackRoutes(router *httprouter.Router) {
	register(router, http.MethodPost, "/feedback/", ratelim.RateLimit(feedback.PostFeedback))
}
