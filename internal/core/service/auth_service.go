package service

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pageguard/visitauth/internal/core/domain"
	"github.com/pageguard/visitauth/internal/core/ports"
	"github.com/pageguard/visitauth/internal/pkg/kdf"
)

const basicScheme = "Basic "

// dummySalt is used to burn a derivation when the login does not exist, so
// the unknown-login and wrong-password paths cost the same.
const dummySalt = "4fa5d20b-e546-4818-9381-b4bd9f327f4e"

// AuthService implements credential verification and enrolment.
type AuthService struct {
	creds ports.CredentialRepository
	kdf   *kdf.Service
	log   zerolog.Logger
}

func NewAuthService(creds ports.CredentialRepository, kdfService *kdf.Service, log zerolog.Logger) *AuthService {
	return &AuthService{creds: creds, kdf: kdfService, log: log}
}

// Verify checks an Authorization header value against the credential store.
// The parse chain short-circuits on the first failure; every failure is a
// typed domain error, never a panic.
func (s *AuthService) Verify(ctx context.Context, header string) (*ports.SignInResult, error) {
	if header == "" {
		return nil, domain.ErrMissingAuthHeader
	}
	if !strings.HasPrefix(header, basicScheme) {
		return nil, domain.ErrInvalidAuthScheme
	}
	encoded := header[len(basicScheme):]
	if encoded == "" {
		return nil, domain.ErrEmptyCredentials
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, domain.ErrInvalidEncoding
	}
	if !utf8.Valid(raw) {
		return nil, domain.ErrMalformedCredentials
	}
	userPass := string(raw)
	sep := strings.IndexByte(userPass, ':')
	if sep < 0 {
		return nil, domain.ErrMalformedCredentials
	}
	// Split on the first colon only: passwords may contain colons.
	login, password := userPass[:sep], userPass[sep+1:]
	if login == "" || password == "" {
		return nil, domain.ErrEmptyLoginOrPassword
	}

	cred, err := s.creds.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, domain.ErrCredentialNotFound) {
			s.kdf.Dk(password, dummySalt)
			return nil, domain.ErrCredentialsRejected
		}
		s.log.Error().Err(err).Msg("credential lookup failed")
		return nil, err
	}

	if !kdf.Equal(s.kdf.Dk(password, cred.Salt), cred.DerivedKey) {
		return nil, domain.ErrCredentialsRejected
	}

	s.log.Info().Str("login", cred.Login).Msg("sign-in authorized")

	return &ports.SignInResult{
		Principal: cred.Principal(),
		UserName:  cred.User.Name,
	}, nil
}

// SignUp enrols a new credential: a fresh salt, the derived key over the
// password, and the joined user profile. Login uniqueness is enforced by the
// store at write time.
func (s *AuthService) SignUp(ctx context.Context, in ports.SignUpInput) (*domain.Credential, error) {
	if in.Login == "" || in.Password == "" || strings.ContainsRune(in.Login, ':') {
		return nil, domain.ErrEmptyLoginOrPassword
	}

	now := time.Now().UTC()
	salt := uuid.NewString()
	userID := uuid.NewString()

	cred := &domain.Credential{
		ID:         uuid.NewString(),
		UserID:     userID,
		Login:      in.Login,
		Salt:       salt,
		DerivedKey: s.kdf.Dk(in.Password, salt),
		Role:       domain.RoleGuest,
		User: domain.User{
			ID:           userID,
			Name:         in.Name,
			Email:        in.Email,
			Birthdate:    in.Birthdate,
			RegisteredAt: now,
		},
	}

	if err := s.creds.Create(ctx, cred); err != nil {
		if errors.Is(err, domain.ErrLoginTaken) {
			return nil, err
		}
		s.log.Error().Err(err).Str("login", in.Login).Msg("credential enrolment failed")
		return nil, err
	}

	s.log.Info().Str("login", cred.Login).Msg("credential enrolled")
	return cred, nil
}
