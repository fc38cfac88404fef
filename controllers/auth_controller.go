package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/yatube/yatube/config"
	"github.com/yatube/yatube/forms"
	"github.com/yatube/yatube/middleware"
	"github.com/yatube/yatube/models"
	"github.com/yatube/yatube/repositories"
	"github.com/yatube/yatube/utils"
)

const (
	defaultLoginRedirect = "/posts/"
	oauthStateTTL        = 10 * time.Minute
)

// OAuth user info endpoints; variables so they can point at a stub server.
var (
	githubUserURL   = "https://api.github.com/user"
	githubEmailsURL = "https://api.github.com/user/emails"
	googleUserURL   = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// AuthController handles authentication related endpoints including local and third-party providers.
type AuthController struct {
	users  repositories.UserRepository
	render utils.Renderer
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(users repositories.UserRepository, render utils.Renderer) *AuthController {
	return &AuthController{users: users, render: render}
}

// Signup registers a local account with a bcrypt hashed password and signs it in.
func (a *AuthController) Signup(ctx *gin.Context) {
	ip := ctx.ClientIP()
	if !utils.SignupDailyLimitCheck(ctx.Request.Context(), ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42903, "daily signup limit reached")
		return
	}
	if !utils.SignupCooldownTry(ctx.Request.Context(), ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42902, "signing up too often, try again later")
		return
	}

	var form forms.SignupForm
	if err := ctx.ShouldBind(&form); err != nil {
		utils.Sugar.Debugf("signup bind failed: %v", err)
	}
	errs := form.Validate()
	if !errs.Any() {
		taken, err := a.users.UsernameExists(ctx.Request.Context(), form.Username)
		if err != nil {
			serverError(ctx, 50001, "failed to check username", err)
			return
		}
		if taken {
			errs.Add("username", "A user with that username already exists.")
		}
	}
	if errs.Any() {
		a.render.Render(ctx, http.StatusBadRequest, viewSignup, gin.H{"form": form, "errors": errs})
		return
	}

	hash, err := utils.HashPassword(form.Password)
	if err != nil {
		serverError(ctx, 50002, "failed to hash password", err)
		return
	}
	user := models.User{Username: form.Username, Email: form.Email, PasswordHash: hash, Provider: "local"}
	if err := a.users.Create(ctx.Request.Context(), &user); err != nil {
		serverError(ctx, 50003, "failed to create user", err)
		return
	}
	utils.SignupDailyIncrement(ctx.Request.Context(), ip)

	token, err := a.signIn(ctx, &user)
	if err != nil {
		serverError(ctx, 50004, "failed to generate token", err)
		return
	}
	utils.Respond(ctx, http.StatusCreated, 0, "success", gin.H{"token": token, "user": sanitizeUserResponse(user)})
}

// LoginForm describes the login form; anonymous viewers are redirected here with ?next=.
func (a *AuthController) LoginForm(ctx *gin.Context) {
	form := forms.LoginForm{Next: ctx.Query("next")}
	a.render.Render(ctx, http.StatusOK, viewLogin, gin.H{"form": form, "errors": forms.FieldErrors{}})
}

// Login verifies user credentials and issues a JWT. With a local next target the viewer is redirected there.
func (a *AuthController) Login(ctx *gin.Context) {
	var form forms.LoginForm
	if err := ctx.ShouldBind(&form); err != nil {
		utils.Sugar.Debugf("login bind failed: %v", err)
	}
	errs := form.Validate()
	if errs.Any() {
		a.render.Render(ctx, http.StatusBadRequest, viewLogin, gin.H{"form": form, "errors": errs})
		return
	}

	user, err := a.users.GetByUsername(ctx.Request.Context(), form.Username)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		serverError(ctx, 50005, "failed to load user", err)
		return
	}
	if user == nil || !utils.CheckPassword(user.PasswordHash, form.Password) {
		errs.Add("__all__", "Please enter a correct username and password.")
		a.render.Render(ctx, http.StatusBadRequest, viewLogin, gin.H{"form": form, "errors": errs})
		return
	}

	token, err := a.signIn(ctx, user)
	if err != nil {
		serverError(ctx, 50004, "failed to generate token", err)
		return
	}
	if form.Next != "" {
		ctx.Redirect(http.StatusFound, form.SafeNext(defaultLoginRedirect))
		return
	}
	utils.Success(ctx, gin.H{"token": token, "user": sanitizeUserResponse(*user)})
}

// Logout invalidates the token by blacklisting it until expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	value, ok := ctx.Get(middleware.ContextClaimsKey)
	claims, _ := value.(*utils.Claims)
	if !ok || claims == nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}

	expiresAt := claims.ExpiresAtOr(time.Now().Add(tokenTTL()))
	if err := utils.BlacklistToken(ctx.Request.Context(), claims.ID, expiresAt); err != nil {
		serverError(ctx, 50006, "failed to revoke token", err)
		return
	}
	cfg := config.Get()
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(cfg.CookieName, "", -1, "/", "", cfg.CookieSecure, true)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// OAuthRedirect sends the viewer to the provider's consent page.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	cfg, err := oauthConfig(ctx.Param("provider"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	state := uuid.NewString()
	if err := utils.SaveState(ctx.Request.Context(), state, oauthStateTTL); err != nil {
		serverError(ctx, 50007, "failed to store oauth state", err)
		return
	}
	ctx.Redirect(http.StatusFound, cfg.AuthCodeURL(state, oauth2.AccessTypeOnline))
}

// OAuthCallback exchanges the authorization code for a user identity and issues a JWT.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	provider := strings.ToLower(ctx.Param("provider"))
	code := ctx.Query("code")
	state := ctx.Query("state")

	if code == "" || state == "" {
		utils.Error(ctx, http.StatusBadRequest, 40005, "missing code or state")
		return
	}
	if !utils.ConsumeState(ctx.Request.Context(), state) {
		utils.Error(ctx, http.StatusBadRequest, 40006, "invalid or expired state")
		return
	}

	cfg, err := oauthConfig(provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	token, err := cfg.Exchange(ctx.Request.Context(), code)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40007, "failed to exchange code")
		return
	}

	info, err := fetchOAuthUser(ctx.Request.Context(), cfg, provider, token)
	if err != nil {
		serverError(ctx, 50008, "failed to fetch provider profile", err)
		return
	}

	user, err := a.findOrCreateOAuthUser(ctx.Request.Context(), provider, info)
	if err != nil {
		serverError(ctx, 50009, "failed to persist user", err)
		return
	}

	if _, err := a.signIn(ctx, user); err != nil {
		serverError(ctx, 50004, "failed to generate token", err)
		return
	}
	ctx.Redirect(http.StatusFound, defaultLoginRedirect)
}

// signIn issues a token for user and stores it in the session cookie.
func (a *AuthController) signIn(ctx *gin.Context, user *models.User) (string, error) {
	ttl := tokenTTL()
	token, err := utils.GenerateToken(user.ID, user.Username, ttl)
	if err != nil {
		return "", err
	}
	cfg := config.Get()
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(cfg.CookieName, token, int(ttl.Seconds()), "/", "", cfg.CookieSecure, true)
	return token, nil
}

func tokenTTL() time.Duration {
	return time.Duration(config.Get().TokenTTLHours) * time.Hour
}

func oauthConfig(provider string) (*oauth2.Config, error) {
	cfg := config.Get()
	switch strings.ToLower(provider) {
	case "github":
		if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
			return nil, fmt.Errorf("github oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  fmt.Sprintf("%s/auth/oauth/github/callback/", cfg.OAuthRedirectBase),
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}, nil
	case "google":
		if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
			return nil, fmt.Errorf("google oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  fmt.Sprintf("%s/auth/oauth/google/callback/", cfg.OAuthRedirectBase),
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

type oauthUser struct {
	ID       string
	Username string
	Email    string
}

func fetchOAuthUser(ctx context.Context, cfg *oauth2.Config, provider string, token *oauth2.Token) (*oauthUser, error) {
	client := cfg.Client(ctx, token)
	switch provider {
	case "github":
		return fetchGitHubUser(client)
	case "google":
		return fetchGoogleUser(client)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func getJSON(client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func fetchGitHubUser(client *http.Client) (*oauthUser, error) {
	var payload struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
	}
	if err := getJSON(client, githubUserURL, &payload); err != nil {
		return nil, err
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	email := ""
	if err := getJSON(client, githubEmailsURL, &emails); err == nil {
		for _, e := range emails {
			if e.Primary && e.Verified {
				email = e.Email
				break
			}
		}
	}

	return &oauthUser{ID: fmt.Sprintf("%d", payload.ID), Username: payload.Login, Email: email}, nil
}

func fetchGoogleUser(client *http.Client) (*oauthUser, error) {
	var payload struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := getJSON(client, googleUserURL, &payload); err != nil {
		return nil, err
	}
	username, _, _ := strings.Cut(payload.Email, "@")
	return &oauthUser{ID: payload.ID, Username: username, Email: payload.Email}, nil
}

func (a *AuthController) findOrCreateOAuthUser(ctx context.Context, provider string, data *oauthUser) (*models.User, error) {
	user, err := a.users.GetByProvider(ctx, provider, data.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	username, err := a.ensureUniqueUsername(ctx, data.Username, provider, data.ID)
	if err != nil {
		return nil, err
	}
	user = &models.User{
		Username:   username,
		Email:      strings.TrimSpace(data.Email),
		Provider:   provider,
		ProviderID: data.ID,
	}
	if err := a.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func sanitizeUsername(input string) string {
	input = strings.ToLower(strings.TrimSpace(input))
	var builder strings.Builder
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r == '_' || r == '-' || r == '.':
			builder.WriteRune('_')
		}
	}
	return strings.Trim(builder.String(), "_")
}

func (a *AuthController) ensureUniqueUsername(ctx context.Context, base, provider, id string) (string, error) {
	base = sanitizeUsername(base)
	if base == "" {
		base = sanitizeUsername(fmt.Sprintf("%s_%s", provider, id))
	}

	candidate := base
	for suffix := 1; ; suffix++ {
		taken, err := a.users.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d", base, suffix)
	}
}

func sanitizeUserResponse(user models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"provider":   user.Provider,
		"created_at": user.CreatedAt,
		"is_admin":   config.Get().IsAdmin(user.Username),
	}
}
