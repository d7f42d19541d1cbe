package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"account-lifecycle/internal/domain"
	"account-lifecycle/internal/email"
	"account-lifecycle/internal/repository"
)

const (
	verifyEmailPath   = "verify_email"
	resetPasswordPath = "reset_password"

	defaultVerifyCodeTTL = 72 * time.Hour
	defaultResetCodeTTL  = time.Hour
	defaultResetWindow   = 10 * time.Minute
	defaultResetMax      = 3
)

// Notifier entrega correos sin bloquear ni propagar errores.
type Notifier interface {
	Notify(to, subject, htmlBody string)
}

// TokenIssuer firma tokens de sesión.
type TokenIssuer interface {
	Issue(user domain.User) (Token, error)
}

// codeRedeemer lo implementan los stores capaces de borrar el código y
// actualizar al usuario en una misma transacción.
type codeRedeemer interface {
	RedeemVerification(ctx context.Context, code string, at time.Time) error
	RedeemPasswordReset(ctx context.Context, code, passwordHash string, at time.Time) error
}

type AccountOptions struct {
	// BaseURL se usa cuando la petición no trae una URL de frontend propia.
	BaseURL              string
	VerifyCodeTTL        time.Duration
	ResetCodeTTL         time.Duration
	RequireVerifiedLogin bool
}

// AccountService coordina el ciclo de vida de las cuentas: registro,
// verificación de email, login y recuperación de contraseña.
type AccountService struct {
	logger   *zap.Logger
	users    repository.UserRepository
	codes    VerificationStore
	hasher   PasswordHasher
	codeGen  CodeGenerator
	tokens   TokenIssuer
	notifier Notifier
	limiter  RequestLimiter
	opts     AccountOptions
	now      func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewAccountService(
	logger *zap.Logger,
	users repository.UserRepository,
	codes VerificationStore,
	hasher PasswordHasher,
	codeGen CodeGenerator,
	tokens TokenIssuer,
	notifier Notifier,
	limiter RequestLimiter,
	opts AccountOptions,
) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if hasher == nil {
		hasher = NewBcryptHasher(DefaultBcryptCost)
	}
	if codeGen == nil {
		codeGen = NewCodeGenerator()
	}
	if limiter == nil {
		limiter = NewRequestLimiter(defaultResetWindow, defaultResetMax)
	}
	if opts.VerifyCodeTTL <= 0 {
		opts.VerifyCodeTTL = defaultVerifyCodeTTL
	}
	if opts.ResetCodeTTL <= 0 {
		opts.ResetCodeTTL = defaultResetCodeTTL
	}
	return &AccountService{
		logger:   logger,
		users:    users,
		codes:    codes,
		hasher:   hasher,
		codeGen:  codeGen,
		tokens:   tokens,
		notifier: notifier,
		limiter:  limiter,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Country   string
	Image     string
	BaseURL   string
}

type LoginResult struct {
	User  domain.User `json:"user"`
	Token Token       `json:"token"`
}

var errNotConfigured = errors.New("account service not configured")

func (s *AccountService) configured() bool {
	return s.users != nil && s.codes != nil
}

func (s *AccountService) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	if !s.configured() {
		return domain.User{}, errNotConfigured
	}

	emailAddr := normalizeEmail(input.Email)
	if err := validateRegistration(emailAddr, input); err != nil {
		return domain.User{}, err
	}

	_, err := s.users.GetByEmail(ctx, emailAddr)
	if err == nil {
		return domain.User{}, ErrEmailTaken
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        emailAddr,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Country:      strings.TrimSpace(input.Country),
		Image:        strings.TrimSpace(input.Image),
		PasswordHash: passwordHash,
		Verified:     false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	code, err := s.issueCode(ctx, user.ID, domain.PurposeEmailVerification, s.opts.VerifyCodeTTL)
	if err != nil {
		return domain.User{}, err
	}

	msg := email.VerificationEmail(user.FirstName, s.link(input.BaseURL, verifyEmailPath, code))
	s.notify(user.Email, msg)

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return user.Public(), nil
}

// VerifyEmail marca la cuenta como verificada y consume el código. Si la
// actualización del usuario falla el código sigue disponible para reintentar.
func (s *AccountService) VerifyEmail(ctx context.Context, code string) (domain.User, error) {
	if !s.configured() {
		return domain.User{}, errNotConfigured
	}

	record, err := s.lookupCode(ctx, code, domain.PurposeEmailVerification)
	if err != nil {
		return domain.User{}, err
	}

	user, err := s.loadUser(ctx, record.UserID)
	if err != nil {
		return domain.User{}, err
	}

	now := s.now()
	err = s.redeem(ctx, record,
		func(r codeRedeemer) error { return r.RedeemVerification(ctx, record.Code, now) },
		func() error {
			if err := s.users.MarkVerified(ctx, user.ID, now); err != nil {
				return fmt.Errorf("mark verified: %w", err)
			}
			return nil
		},
	)
	if err != nil {
		return domain.User{}, err
	}
	user.Verified = true
	user.UpdatedAt = now

	s.logger.Info("email verified", zap.String("user_id", user.ID))
	return user.Public(), nil
}

// Login responde igual ante email inexistente y contraseña incorrecta.
func (s *AccountService) Login(ctx context.Context, emailAddr, password string) (LoginResult, error) {
	if s.users == nil || s.tokens == nil {
		return LoginResult{}, errNotConfigured
	}

	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Igualamos el coste de una comparación real.
			s.hasher.Compare(s.dummyPasswordHash(), password)
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("lookup user: %w", err)
	}
	if !s.hasher.Compare(user.PasswordHash, password) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if s.opts.RequireVerifiedLogin && !user.Verified {
		return LoginResult{}, ErrEmailNotVerified
	}

	public := user.Public()
	token, err := s.tokens.Issue(public)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}
	return LoginResult{User: public, Token: token}, nil
}

// ResendVerification emite un código nuevo para una cuenta aún sin verificar.
// Es la salida para quien se registró pero nunca recibió un código válido.
func (s *AccountService) ResendVerification(ctx context.Context, emailAddr, baseURL string) (domain.User, error) {
	if !s.configured() {
		return domain.User{}, errNotConfigured
	}

	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return domain.User{}, ErrInvalidEmail
	}
	if s.limiter != nil && !s.limiter.Allow(ctx, limitKey(verifyEmailPath, emailAddr)) {
		return domain.User{}, ErrRateLimited
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if user.Verified {
		return domain.User{}, ErrAlreadyVerified
	}

	code, err := s.issueCode(ctx, user.ID, domain.PurposeEmailVerification, s.opts.VerifyCodeTTL)
	if err != nil {
		return domain.User{}, err
	}

	msg := email.VerificationEmail(user.FirstName, s.link(baseURL, verifyEmailPath, code))
	s.notify(user.Email, msg)

	s.logger.Info("verification resent", zap.String("user_id", user.ID))
	return user.Public(), nil
}

func (s *AccountService) RequestPasswordReset(ctx context.Context, emailAddr, baseURL string) (domain.User, error) {
	if !s.configured() {
		return domain.User{}, errNotConfigured
	}

	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return domain.User{}, ErrInvalidEmail
	}
	if s.limiter != nil && !s.limiter.Allow(ctx, limitKey(resetPasswordPath, emailAddr)) {
		return domain.User{}, ErrRateLimited
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}

	code, err := s.issueCode(ctx, user.ID, domain.PurposePasswordReset, s.opts.ResetCodeTTL)
	if err != nil {
		return domain.User{}, err
	}

	msg := email.PasswordResetEmail(user.FirstName, s.link(baseURL, resetPasswordPath, code))
	s.notify(user.Email, msg)

	s.logger.Info("password reset requested", zap.String("user_id", user.ID))
	return user.Public(), nil
}

func (s *AccountService) ConfirmPasswordReset(ctx context.Context, code, newPassword string) (domain.User, error) {
	if !s.configured() {
		return domain.User{}, errNotConfigured
	}
	if err := validatePassword(newPassword); err != nil {
		return domain.User{}, err
	}

	record, err := s.lookupCode(ctx, code, domain.PurposePasswordReset)
	if err != nil {
		return domain.User{}, err
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.loadUser(ctx, record.UserID)
	if err != nil {
		return domain.User{}, err
	}

	now := s.now()
	err = s.redeem(ctx, record,
		func(r codeRedeemer) error { return r.RedeemPasswordReset(ctx, record.Code, passwordHash, now) },
		func() error {
			if err := s.users.UpdatePassword(ctx, user.ID, passwordHash, now); err != nil {
				return fmt.Errorf("update password: %w", err)
			}
			return nil
		},
	)
	if err != nil {
		return domain.User{}, err
	}
	user.UpdatedAt = now

	s.logger.Info("password reset completed", zap.String("user_id", user.ID))
	return user.Public(), nil
}

// CurrentUser devuelve el usuario dueño de un token ya validado.
func (s *AccountService) CurrentUser(ctx context.Context, userID string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errNotConfigured
	}
	if strings.TrimSpace(userID) == "" {
		return domain.User{}, ErrUserNotFound
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	return user.Public(), nil
}

func (s *AccountService) issueCode(ctx context.Context, userID string, purpose domain.CodePurpose, ttl time.Duration) (string, error) {
	code, err := s.codeGen.Generate()
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	now := s.now()
	record := domain.VerificationCode{
		Code:      digestCode(code),
		UserID:    userID,
		Purpose:   purpose,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.codes.Create(ctx, record); err != nil {
		return "", fmt.Errorf("store code: %w", err)
	}
	return code, nil
}

func (s *AccountService) lookupCode(ctx context.Context, code string, purpose domain.CodePurpose) (domain.VerificationCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.VerificationCode{}, ErrCodeNotFound
	}
	record, err := s.codes.FindByCode(ctx, digestCode(code), purpose)
	if err != nil {
		if errors.Is(err, ErrCodeNotFound) || errors.Is(err, pgx.ErrNoRows) {
			return domain.VerificationCode{}, ErrCodeNotFound
		}
		return domain.VerificationCode{}, fmt.Errorf("lookup code: %w", err)
	}
	if record.Expired(s.now()) {
		if _, err := s.codes.Consume(ctx, record.Code, purpose); err != nil {
			s.logger.Warn("discard expired code failed", zap.Error(err), zap.String("user_id", record.UserID))
		}
		return domain.VerificationCode{}, ErrCodeExpired
	}
	return record, nil
}

// redeem consume el código y aplica apply sobre el usuario dueño. De varias
// peticiones concurrentes con el mismo código solo una llega a modificar al
// usuario; las demás reciben ErrCodeNotFound.
//
// Con un store transaccional ambas cosas ocurren en una transacción. Con el
// resto el código se reclama primero y se restaura si apply falla.
func (s *AccountService) redeem(ctx context.Context, record domain.VerificationCode, inTx func(codeRedeemer) error, apply func() error) error {
	if redeemer, ok := s.codes.(codeRedeemer); ok {
		err := inTx(redeemer)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, repository.ErrCodeConsumed):
			s.logConcurrentConsume(record)
			return ErrCodeNotFound
		case errors.Is(err, pgx.ErrNoRows):
			return ErrUserNotFound
		default:
			return fmt.Errorf("redeem code: %w", err)
		}
	}

	consumed, err := s.codes.Consume(ctx, record.Code, record.Purpose)
	if err != nil {
		return fmt.Errorf("consume code: %w", err)
	}
	if !consumed {
		s.logConcurrentConsume(record)
		return ErrCodeNotFound
	}

	if err := apply(); err != nil {
		if restoreErr := s.codes.Create(context.WithoutCancel(ctx), record); restoreErr != nil {
			s.logger.Error("restore verification code failed",
				zap.Error(restoreErr),
				zap.String("user_id", record.UserID),
				zap.String("purpose", string(record.Purpose)),
			)
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

func (s *AccountService) logConcurrentConsume(record domain.VerificationCode) {
	s.logger.Warn("verification code consumed concurrently",
		zap.String("user_id", record.UserID),
		zap.String("purpose", string(record.Purpose)),
	)
}

func (s *AccountService) loadUser(ctx context.Context, id string) (domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (s *AccountService) notify(to string, msg email.Message) {
	if s.notifier == nil {
		s.logger.Warn("notifier not configured, email dropped", zap.String("subject", msg.Subject))
		return
	}
	s.notifier.Notify(to, msg.Subject, msg.HTML)
}

func (s *AccountService) link(baseURL, path, code string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = strings.TrimRight(strings.TrimSpace(s.opts.BaseURL), "/")
	}
	return base + "/" + path + "/" + code
}

func (s *AccountService) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(uuid.NewString())
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}

// validateRegistration devuelve el primer error de entrada, email antes que contraseña.
func validateRegistration(emailAddr string, input RegisterInput) error {
	if err := validation.Validate(emailAddr, validation.Required, validation.Length(3, 254), is.Email); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEmail, err)
	}
	if err := validatePassword(input.Password); err != nil {
		return err
	}
	if err := validation.Validate(input.FirstName, validation.Length(0, 200)); err != nil {
		return fmt.Errorf("first name: %v: %w", err, ErrInvalidInput)
	}
	if err := validation.Validate(input.LastName, validation.Length(0, 200)); err != nil {
		return fmt.Errorf("last name: %v: %w", err, ErrInvalidInput)
	}
	return nil
}

// bcrypt ignora todo lo que pase de 72 bytes.
const maxPasswordBytes = 72

func validatePassword(password string) error {
	err := validation.Validate(password, validation.Required, validation.By(func(value interface{}) error {
		if v, _ := value.(string); len(v) > maxPasswordBytes {
			return fmt.Errorf("must be at most %d bytes", maxPasswordBytes)
		}
		return nil
	}))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPassword, err)
	}
	return nil
}

// limitKey separa los contadores por flujo y evita guardar el email en claro.
func limitKey(flow, emailAddr string) string {
	return flow + ":" + digestCode(emailAddr)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
