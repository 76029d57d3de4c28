package portal

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-query-cache/mutation"
	"github.com/goliatone/go-query-cache/newsapi"
	"github.com/goliatone/go-query-cache/session"
)

// LoginFailureMessage is shown when a failed login carries no server message.
const LoginFailureMessage = "Error al iniciar sesión. Verifica tus credenciales."

// LoginState is the state of a login attempt.
type LoginState = mutation.State[newsapi.AuthResponse]

// Auth runs logins and logouts against the session store.
type Auth struct {
	session *session.Store
	login   *mutation.Mutation[newsapi.Credentials, newsapi.AuthResponse]
	logger  zerolog.Logger

	mu   sync.Mutex
	form newsapi.Credentials
}

// AuthOption configures Auth.
type AuthOption func(*authOptions)

type authOptions struct {
	logger    zerolog.Logger
	listeners []func(LoginState)
}

// WithAuthLogger sets the auth logger.
func WithAuthLogger(logger zerolog.Logger) AuthOption {
	return func(o *authOptions) {
		o.logger = logger
	}
}

// WithLoginListener observes every login state transition.
func WithLoginListener(fn func(LoginState)) AuthOption {
	return func(o *authOptions) {
		o.listeners = append(o.listeners, fn)
	}
}

// NewAuth builds the login/logout service.
func NewAuth(api newsapi.API, store *session.Store, opts ...AuthOption) *Auth {
	o := authOptions{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	a := &Auth{
		session: store,
		logger:  o.logger.With().Str("component", "auth").Logger(),
	}

	mopts := []mutation.Option[newsapi.Credentials, newsapi.AuthResponse]{
		mutation.WithValidator[newsapi.Credentials, newsapi.AuthResponse](newsapi.Credentials.Validate),
		mutation.WithFallbackMessage[newsapi.Credentials, newsapi.AuthResponse](LoginFailureMessage),
		mutation.WithLogger[newsapi.Credentials, newsapi.AuthResponse](o.logger),
		mutation.OnSuccess(a.onSuccess),
		mutation.OnError[newsapi.Credentials, newsapi.AuthResponse](a.onError),
	}
	for _, fn := range o.listeners {
		mopts = append(mopts, mutation.WithStateListener[newsapi.Credentials](fn))
	}
	a.login = mutation.New(api.Login, mopts...)
	return a
}

// Login submits creds. Incomplete credentials return a validation error
// without contacting the server or changing the login state.
func (a *Auth) Login(ctx context.Context, creds newsapi.Credentials) (*mutation.Handle[newsapi.AuthResponse], error) {
	a.mu.Lock()
	a.form = creds
	a.mu.Unlock()
	return a.login.Mutate(ctx, creds)
}

// State returns the state of the latest login attempt.
func (a *Auth) State() LoginState {
	return a.login.State()
}

// Form returns the credentials of the last attempt that did not succeed.
// A successful login clears it.
func (a *Auth) Form() newsapi.Credentials {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.form
}

// Logout drops the session token and resets the login state.
func (a *Auth) Logout(ctx context.Context) error {
	a.login.Reset()
	if err := a.session.Clear(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("session clear not persisted")
		return err
	}
	a.logger.Info().Msg("logged out")
	return nil
}

func (a *Auth) onSuccess(ctx context.Context, resp newsapi.AuthResponse, creds newsapi.Credentials) {
	a.mu.Lock()
	a.form = newsapi.Credentials{}
	a.mu.Unlock()

	if err := a.session.Set(ctx, resp.Token); err != nil {
		a.logger.Warn().Err(err).Msg("session token not persisted")
	}
	a.logger.Info().Str("username", creds.Username).Msg("logged in")
}

func (a *Auth) onError(_ context.Context, message string, err error, creds newsapi.Credentials) {
	a.logger.Debug().Err(err).Str("username", creds.Username).Str("message", message).Msg("login failed")
}
