// Package identity handles passwordless login: registration, one-time codes,
// magic links and the signed session cookie.
package identity

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/signups/internal/codegen"
	"github.com/dukerupert/signups/internal/database"
	"github.com/dukerupert/signups/internal/model"
	"github.com/dukerupert/signups/internal/store"
)

const (
	OTPTTL         = 15 * time.Minute
	maxOTPAttempts = 5
)

var bcryptCost = bcrypt.DefaultCost

// Identification is the result of looking a user up to log in. OTP is the
// plaintext code to deliver on Channel; only its hash is stored.
type Identification struct {
	User    *model.User
	OTP     string
	Channel Channel
}

type Service struct {
	users      *store.UserStore
	admins     *store.AdminStore
	secret     []byte
	production bool
	logger     *slog.Logger
	now        func() time.Time
	newOTP     func() (string, error)
}

type Option func(*Service)

// WithClock overrides the time source used for OTP and session expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithOTPGenerator overrides how one-time codes are produced.
func WithOTPGenerator(gen func() (string, error)) Option {
	return func(s *Service) { s.newOTP = gen }
}

// WithProduction marks session cookies Secure.
func WithProduction(production bool) Option {
	return func(s *Service) { s.production = production }
}

func NewService(db database.Querier, secret []byte, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		users:  store.NewUserStore(db),
		admins: store.NewAdminStore(db),
		secret: secret,
		logger: logger.With("component", "identity"),
		now:    time.Now,
		newOTP: codegen.OTP,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a user, or returns the existing one (created=false). An
// email identifies the account when given; otherwise the phone does. At least
// one of email and phone is required.
func (s *Service) Register(ctx context.Context, name, email, phone string) (*model.User, bool, error) {
	var err error
	email, phone = strings.TrimSpace(email), strings.TrimSpace(phone)
	if email == "" && phone == "" {
		return nil, false, ErrNoChannel
	}
	if email != "" {
		if email, err = NormalizeEmail(email); err != nil {
			return nil, false, err
		}
	}
	if phone != "" {
		if phone, err = NormalizePhone(phone); err != nil {
			return nil, false, err
		}
	}

	existing, err := s.registered(ctx, email, phone)
	if err != nil || existing != nil {
		return existing, false, err
	}

	u, err := s.users.Create(ctx, strings.TrimSpace(name), email, phone, codegen.MagicCode())
	if err != nil {
		if database.IsUniqueViolation(err, "users", "email") || database.IsUniqueViolation(err, "users", "phone") {
			existing, getErr := s.registered(ctx, email, phone)
			if getErr != nil {
				return nil, false, getErr
			}
			if existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, err
	}
	s.logger.Info("user registered", "user_id", u.ID)
	return u, true, nil
}

func (s *Service) registered(ctx context.Context, email, phone string) (*model.User, error) {
	if email != "" {
		return s.users.GetByEmail(ctx, email)
	}
	return s.users.GetByPhone(ctx, phone)
}

// IdentifyByEmail finds a user by email and issues a fresh OTP, replacing any
// earlier one. It returns nil when no user matches.
func (s *Service) IdentifyByEmail(ctx context.Context, email string) (*Identification, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil || u == nil {
		return nil, err
	}
	return s.issueOTP(ctx, u, ChannelEmail)
}

// IdentifyByPhone is IdentifyByEmail for phone numbers.
func (s *Service) IdentifyByPhone(ctx context.Context, phone string) (*Identification, error) {
	phone, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByPhone(ctx, phone)
	if err != nil || u == nil {
		return nil, err
	}
	return s.issueOTP(ctx, u, ChannelPhone)
}

// Identify classifies identifier and dispatches to IdentifyByEmail or IdentifyByPhone.
func (s *Service) Identify(ctx context.Context, identifier string) (*Identification, error) {
	channel, value, err := Classify(identifier)
	if err != nil {
		return nil, err
	}
	if channel == ChannelEmail {
		return s.IdentifyByEmail(ctx, value)
	}
	return s.IdentifyByPhone(ctx, value)
}

func (s *Service) issueOTP(ctx context.Context, u *model.User, channel Channel) (*Identification, error) {
	otp, err := s.newOTP()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(otp), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash otp: %w", err)
	}
	expires := s.now().UTC().Add(OTPTTL)
	if err := s.users.SetLoginCode(ctx, u.ID, string(hash), expires); err != nil {
		return nil, err
	}
	u.LoginCode = string(hash)
	u.LoginCodeExpires = &expires
	u.LoginAttempts = 0

	s.logger.Info("login code issued", "user_id", u.ID, "channel", channel)
	return &Identification{User: u, OTP: otp, Channel: channel}, nil
}

// VerifyOTP returns the user when otp matches the live code and it has not
// expired, and nil otherwise. Wrong and expired codes are indistinguishable.
// After too many wrong guesses the live code is discarded.
func (s *Service) VerifyOTP(ctx context.Context, userID int64, otp string) (*model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, err
	}
	if u.LoginCode == "" || u.LoginCodeExpires == nil || !s.now().Before(*u.LoginCodeExpires) {
		return nil, nil
	}

	if bcrypt.CompareHashAndPassword([]byte(u.LoginCode), []byte(otp)) != nil {
		attempts, err := s.users.IncrementLoginAttempts(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		if attempts >= maxOTPAttempts {
			s.logger.Warn("login code locked after failed attempts", "user_id", u.ID, "attempts", attempts)
			if err := s.users.ClearLoginCode(ctx, u.ID); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}
	return u, nil
}

// VerifyMagicCode reports whether code is the user's permanent magic code.
func (s *Service) VerifyMagicCode(ctx context.Context, userID int64, code string) (bool, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil || u == nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(u.MagicCode), []byte(code)) == 1, nil
}

// User loads a user by id, returning nil when none exists.
func (s *Service) User(ctx context.Context, userID int64) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}

// IsAdmin reports whether the user carries the admin marker.
func (s *Service) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	return s.admins.IsAdmin(ctx, userID)
}
