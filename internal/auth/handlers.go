package auth

import (
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/passage/internal/audit"
	"github.com/mrlokans/passage/internal/database/users"
	"github.com/mrlokans/passage/internal/entities"
	"github.com/mrlokans/passage/internal/requestid"
)

// Flash texts used by the account routes.
const (
	MsgRegistered = "You are now registered and can log in"
	MsgLoggedOut  = "You are logged out"
	MsgGeneric    = "Something went wrong. Please try again."
)

// Auditor records authentication events. *audit.Service implements it.
type Auditor interface {
	LogAuth(action string, ev audit.AuthEvent, success bool)
	LogRegistration(ev audit.AuthEvent, err error)
}

// AuthController handles the account routes under /users.
type AuthController struct {
	registrar     *Registrar
	verifier      *Verifier
	authenticator *Authenticator
	throttle      *LoginThrottle
	auditor       Auditor
}

// NewAuthController creates a new authentication controller. The login
// throttle and auditor are optional.
func NewAuthController(registrar *Registrar, verifier *Verifier, authenticator *Authenticator, throttle *LoginThrottle, auditor Auditor) *AuthController {
	return &AuthController{
		registrar:     registrar,
		verifier:      verifier,
		authenticator: authenticator,
		throttle:      throttle,
		auditor:       auditor,
	}
}

// RegisterRoutes registers authentication routes on the router.
func (ac *AuthController) RegisterRoutes(router gin.IRouter) {
	group := router.Group("/users")
	group.GET("/register", ac.RegisterPage)
	group.POST("/register", ac.Register)
	group.GET("/login", ac.LoginPage)
	group.POST("/login", ac.Login)
	group.GET("/logout", ac.Logout)
	group.POST("/logout", ac.Logout)
}

// RegisterPage renders the registration form.
func (ac *AuthController) RegisterPage(c *gin.Context) {
	Render(c, http.StatusOK, "register.html", gin.H{"Title": "Register"})
}

// Register handles the registration form submission.
func (ac *AuthController) Register(c *gin.Context) {
	var form RegistrationForm
	if err := c.ShouldBind(&form); err != nil {
		log.Printf("Failed to bind registration form: %v", err)
	}

	user, err := ac.registrar.Register(c.Request.Context(), form)
	if err != nil {
		session := GetSession(c)
		var problems ValidationErrors
		switch {
		case errors.As(err, &problems):
			for _, problem := range problems {
				session.Push(entities.FlashError, problem)
			}
		case errors.Is(err, ErrDuplicateEmail):
			ac.logRegistration(c, form.Email, 0, err)
			session.Push(entities.FlashError, MsgDuplicateEmail)
		default:
			log.Printf("Failed to register user: %v", err)
			ac.logRegistration(c, form.Email, 0, err)
			session.Push(entities.FlashGenericError, MsgGeneric)
			c.Redirect(http.StatusFound, "/users/register")
			return
		}

		Render(c, http.StatusOK, "register.html", gin.H{
			"Title": "Register",
			"Name":  form.Name,
			"Email": form.Email,
		})
		return
	}

	ac.logRegistration(c, user.Email, user.ID, nil)
	GetSession(c).Push(entities.FlashSuccess, MsgRegistered)
	c.Redirect(http.StatusFound, LoginPath)
}

// LoginPage renders the login form.
func (ac *AuthController) LoginPage(c *gin.Context) {
	if IsAuthenticated(c) {
		c.Redirect(http.StatusFound, DashboardPath)
		return
	}

	Render(c, http.StatusOK, "login.html", gin.H{"Title": "Login"})
}

// Login handles the login form submission.
func (ac *AuthController) Login(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")
	clientIP := c.ClientIP()
	session := GetSession(c)

	attempt, retryAfter, allowed := ac.throttle.Begin(clientIP, email)
	if !allowed {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
		session.Push(entities.FlashError, TooManyAttemptsMessage)
		c.Redirect(http.StatusFound, LoginPath)
		return
	}

	user, err := ac.verifier.Verify(c.Request.Context(), email, password)
	if err != nil {
		if !IsCredentialError(err) {
			attempt.Cancel()
			log.Printf("Failed to verify credentials: %v", err)
			session.Push(entities.FlashGenericError, MsgGeneric)
			c.Redirect(http.StatusFound, LoginPath)
			return
		}

		if attempt.Fail() {
			log.Printf("Login locked out for %s from %s", users.NormalizeEmail(email), clientIP)
		}
		ac.logAuth(c, entities.AuditActionLoginFailed, email, 0, false)
		session.Push(entities.FlashGenericError, InvalidCredentialsMessage)
		c.Redirect(http.StatusFound, LoginPath)
		return
	}

	returnTo := session.PopReturnTo()

	if err := ac.authenticator.Login(c.Request.Context(), user); err != nil {
		attempt.Cancel()
		log.Printf("Failed to create session for user %d: %v", user.ID, err)
		session.Push(entities.FlashGenericError, MsgGeneric)
		c.Redirect(http.StatusFound, LoginPath)
		return
	}

	attempt.Succeed()
	ac.logAuth(c, entities.AuditActionLogin, user.Email, user.ID, true)

	c.Redirect(http.StatusFound, SanitizeRedirectPath(returnTo, DashboardPath))
}

// Logout ends the session and redirects to the welcome page.
func (ac *AuthController) Logout(c *gin.Context) {
	user := CurrentUser(c)

	if err := ac.authenticator.Logout(c.Request.Context()); err != nil {
		log.Printf("Failed to destroy session: %v", err)
	}
	if user != nil {
		ac.logAuth(c, entities.AuditActionLogout, user.Email, user.ID, true)
	}

	GetSession(c).Push(entities.FlashSuccess, MsgLoggedOut)
	c.Redirect(http.StatusFound, "/")
}

func (ac *AuthController) authEvent(c *gin.Context, email string, userID uint) audit.AuthEvent {
	return audit.AuthEvent{
		UserID:    userID,
		Email:     email,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		RequestID: requestid.FromContext(c.Request.Context()),
	}
}

func (ac *AuthController) logAuth(c *gin.Context, action, email string, userID uint, success bool) {
	if ac.auditor == nil {
		return
	}
	ac.auditor.LogAuth(action, ac.authEvent(c, email, userID), success)
}

func (ac *AuthController) logRegistration(c *gin.Context, email string, userID uint, err error) {
	if ac.auditor == nil {
		return
	}
	ac.auditor.LogRegistration(ac.authEvent(c, email, userID), err)
}
