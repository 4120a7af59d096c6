package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"storefront-service/internal/auth"
	"storefront-service/internal/domain"
	"storefront-service/internal/service"
	"storefront-service/internal/store"
)

// OrderService is the order placement surface used by the handlers.
type OrderService interface {
	PlaceOrder(ctx context.Context, userID *int64, payload domain.PlaceOrderPayload) (domain.PlacedOrder, error)
	TrackOrder(ctx context.Context, trackingID string) (*domain.OrderView, error)
	ListOrders(ctx context.Context, limit, offset int) ([]domain.OrderSummary, int, error)
}

// AccountService is the account surface used by the auth handlers.
type AccountService interface {
	Signup(ctx context.Context, email, password, username string) (domain.PublicUser, error)
	VerifyEmail(ctx context.Context, token string) error
	SendVerifyEmail(ctx context.Context, email string) error
	RequestPasswordSet(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, token, newPassword string) error
	Login(ctx context.Context, email, password string) (domain.PublicUser, string, error)
	Me(ctx context.Context, userID int64) (domain.PublicUser, error)
	GoogleAuthURL(state string) (string, error)
	GoogleCallback(ctx context.Context, code string) (domain.PublicUser, string, error)
}

// DashboardService serves admin statistics.
type DashboardService interface {
	DashboardStats(ctx context.Context) (*domain.AdminStats, error)
}

// Dependencies groups everything the HTTP handlers call into.
type Dependencies struct {
	Categories store.CategoryStorer
	Products   store.ProductStorer
	Carts      store.CartStorer
	Users      store.UserStorer
	Orders     OrderService
	Accounts   AccountService
	Dashboard  DashboardService
	Tokens     *auth.TokenManager
	ClientURL  string
	// SecureCookies marks session cookies Secure. Enable behind TLS.
	SecureCookies bool
}

// HTTPHandler holds dependencies for HTTP handlers.
type HTTPHandler struct {
	deps     Dependencies
	validate *validator.Validate
}

// NewHTTPHandler creates a new HTTPHandler with dependencies.
func NewHTTPHandler(deps Dependencies) *HTTPHandler {
	return &HTTPHandler{
		deps:     deps,
		validate: newValidator(),
	}
}

// newValidator reports field errors under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Prices are compared as numbers so gt/gte tags apply to them.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// --- Helpers ---

// Envelope is the body of every JSON response.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Printf("ERROR: Failed to encode JSON response: %v", err)
		}
	}
}

func respondOK(w http.ResponseWriter, code int, message string, data interface{}) {
	respondWithJSON(w, code, Envelope{Success: true, Message: message, Data: data})
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, Envelope{Success: false, Message: message})
}

func respondValidation(w http.ResponseWriter, problems []string) {
	respondWithJSON(w, http.StatusBadRequest, Envelope{Success: false, Message: "Validation failed", Errors: problems})
}

// errorStatuses maps domain errors to responses. An empty message echoes the
// error text, so only service errors written for end users leave it empty.
// withDetail appends whatever the store added after the sentinel.
var errorStatuses = []struct {
	err        error
	code       int
	message    string
	withDetail bool
}{
	{store.ErrProductNotFound, http.StatusNotFound, "Product not found", false},
	{store.ErrCategoryNotFound, http.StatusNotFound, "Category not found", false},
	{store.ErrOrderNotFound, http.StatusNotFound, "Order not found", false},
	{store.ErrUserNotFound, http.StatusNotFound, "User not found", false},
	{store.ErrProductSlugExists, http.StatusConflict, "Product with this slug already exists", false},
	{store.ErrCategorySlugExists, http.StatusConflict, "Category with this slug already exists", false},
	{store.ErrUserExists, http.StatusConflict, "User already exists", false},
	{store.ErrTrackingIDConflict, http.StatusConflict, "Could not allocate a tracking id, please retry", false},
	{store.ErrInvalidCategorySlugs, http.StatusBadRequest, "Invalid category slugs", true},
	{store.ErrInvalidProduct, http.StatusBadRequest, "Invalid product", true},
	{store.ErrIncompleteOrder, http.StatusBadRequest, "Order needs a shipping address and at least one item", false},
	{service.ErrEmailRegistered, http.StatusConflict, "", false},
	{service.ErrGoogleAccountExists, http.StatusConflict, "", false},
	{service.ErrVerificationResent, http.StatusConflict, "", false},
	{service.ErrPasswordTooShort, http.StatusBadRequest, "", false},
	{service.ErrMissingAccountDetails, http.StatusBadRequest, "", false},
	{service.ErrPasswordNotSet, http.StatusBadRequest, "", false},
	{service.ErrInvalidOrExpiredToken, http.StatusBadRequest, "", false},
	{service.ErrEmailNotVerified, http.StatusForbidden, "Email not verified", false},
	{service.ErrIncorrectPassword, http.StatusUnauthorized, "Incorrect password", false},
	{auth.ErrOAuthDisabled, http.StatusNotFound, "Google sign-in is not available", false},
}

// respondWithStoreError writes the mapped status for err. Unknown errors are
// logged and reported as a generic 500 with fallback as the message.
func respondWithStoreError(w http.ResponseWriter, op string, err error, fallback string) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			message := e.message
			switch {
			case message == "":
				message = err.Error()
			case e.withDetail:
				message += sentinelDetail(err, e.err)
			}
			if e.code >= http.StatusInternalServerError {
				log.Printf("ERROR: %s failed: %v", op, err)
			}
			respondWithError(w, e.code, message)
			return
		}
	}
	log.Printf("ERROR: %s failed: %v", op, err)
	respondWithError(w, http.StatusInternalServerError, fallback)
}

// sentinelDetail returns the ": ..." suffix a store error added after sentinel, if any.
func sentinelDetail(err, sentinel error) string {
	text := err.Error()
	i := strings.LastIndex(text, sentinel.Error())
	if i < 0 {
		return ""
	}
	rest := text[i+len(sentinel.Error()):]
	if !strings.HasPrefix(rest, ": ") {
		return ""
	}
	return rest
}

// decodeJSON reads a JSON body into dst, writing the 400 response on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return false
	}
	return true
}

func (h *HTTPHandler) validateStruct(w http.ResponseWriter, v interface{}) bool {
	if err := h.validate.Struct(v); err != nil {
		respondValidation(w, validationProblems(err))
		return false
	}
	return true
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// It writes the 400 response itself and reports whether handling should continue.
func (h *HTTPHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	return decodeJSON(w, r, dst) && h.validateStruct(w, dst)
}

// validationProblems flattens validator errors into "field.path rule" messages.
func validationProblems(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		list := fe.Kind() == reflect.Slice || fe.Kind() == reflect.Array || fe.Kind() == reflect.Map
		switch tag := fe.Tag(); {
		case list && (tag == "required" || (tag == "min" && fe.Param() == "1")):
			problems = append(problems, field+" must be a non-empty array")
		case tag == "required", tag == "required_if":
			problems = append(problems, field+" is required")
		case tag == "email":
			problems = append(problems, field+" must be a valid email")
		case list && tag == "min":
			problems = append(problems, field+" must contain at least "+fe.Param()+" items")
		case tag == "min", tag == "gte":
			problems = append(problems, field+" must be at least "+fe.Param())
		case tag == "gt":
			problems = append(problems, field+" must be a number > "+fe.Param())
		case list && tag == "max":
			problems = append(problems, field+" can contain max "+fe.Param()+" items")
		case tag == "max":
			problems = append(problems, field+" must be at most "+fe.Param()+" characters")
		case tag == "unique":
			problems = append(problems, field+" cannot contain duplicates")
		case tag == "oneof":
			problems = append(problems, field+" must be one of: "+fe.Param())
		default:
			problems = append(problems, field+" failed "+tag+" validation")
		}
	}
	return problems
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

// pagination reads page/limit query params with the listing defaults.
func pagination(r *http.Request, defaultLimit, maxLimit int) (page, limit, offset int) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	page, err = strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page <= 0 {
		page = 1
	}
	return page, limit, (page - 1) * limit
}

func pageInfo(page, limit, total int) domain.Pagination {
	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return domain.Pagination{CurrentPage: page, PageSize: limit, TotalItems: total, TotalPages: totalPages}
}

func (h *HTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondOK(w, http.StatusOK, "API is running!", nil)
}

// --- Route Registration ---

// RegisterRoutes mounts every /api route on r.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	requireAuth := auth.RequireAuth(h.deps.Tokens)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Get("/category/{category}", h.GetProductsByCategory)
			r.Get("/{productId}", h.GetProductByID)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.ListActiveCategories)
			r.Get("/{categoryId}", h.GetCategoryByID)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth, auth.AdminOnly)
				r.Post("/", h.CreateCategory)
				r.Put("/{categoryId}", h.UpdateCategory)
				r.Delete("/{categoryId}", h.DeleteCategory)
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(auth.OptionalAuth(h.deps.Tokens)).Post("/place-order", h.PlaceOrder)
			r.Get("/track-order/{trackingId}", h.TrackOrder)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", h.Signup)
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
			r.Get("/verify-email", h.VerifyEmail)
			r.Post("/send-verify-email", h.SendVerifyEmail)
			r.Post("/request-password-set", h.RequestPasswordSet)
			r.Post("/reset-password", h.ResetPassword)
			r.With(requireAuth).Get("/me", h.Me)
			r.Get("/google", h.GoogleLogin)
			r.Get("/google/callback", h.GoogleCallback)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", h.GetCart)
			r.Put("/", h.UpdateCart)
			r.Delete("/", h.ClearCart)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAuth, auth.AdminOnly)
			r.Get("/dashboard/stats", h.DashboardStats)

			r.Get("/products", h.ListProducts)
			r.Post("/products", h.CreateProduct)
			r.Put("/products/{productId}", h.UpdateProduct)
			r.Delete("/products/{productId}", h.DeleteProduct)

			r.Get("/categories", h.ListAllCategories)
			r.Post("/categories", h.CreateCategory)
			r.Put("/categories/{categoryId}", h.UpdateCategory)
			r.Delete("/categories/{categoryId}", h.DeleteCategory)

			r.Get("/orders", h.ListOrders)
			r.Get("/orders/{trackingId}", h.TrackOrder)

			r.Get("/users", h.ListUsers)
			r.Get("/users/{userId}", h.GetUser)
		})
	})
}
