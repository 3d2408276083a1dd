package registrations

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidPass = errors.New("invalid pass")

// PassClaims are carried in an attendee's QR pass.
type PassClaims struct {
	RegistrationID uuid.UUID `json:"rid"`
	EventID        uuid.UUID `json:"eid"`
	jwt.RegisteredClaims
}

// PassService signs and verifies QR passes with a secret distinct from sessions.
// A pass stays valid until its event is over plus a grace period, however early
// the attendee registered.
type PassService struct {
	secret []byte
	grace  time.Duration
	now    func() time.Time
}

// NewPassService creates a pass service.
func NewPassService(secret string, graceDays int) *PassService {
	return &PassService{
		secret: []byte(secret),
		grace:  time.Duration(graceDays) * 24 * time.Hour,
		now:    time.Now,
	}
}

// Issue signs a pass for the registration that expires grace after eventEnd.
func (s *PassService) Issue(registrationID, eventID uuid.UUID, eventEnd time.Time) (string, error) {
	now := s.now()
	if eventEnd.Before(now) {
		eventEnd = now
	}
	claims := PassClaims{
		RegistrationID: registrationID,
		EventID:        eventID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   registrationID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(eventEnd.Add(s.grace)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks the signature and expiry of a pass.
func (s *PassService) Verify(token string) (*PassClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &PassClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidPass
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, ErrInvalidPass
	}
	claims, ok := parsed.Claims.(*PassClaims)
	if !ok || !parsed.Valid || claims.RegistrationID == uuid.Nil {
		return nil, ErrInvalidPass
	}
	return claims, nil
}
