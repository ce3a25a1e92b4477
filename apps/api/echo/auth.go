package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/reelbingo/promo/core"
	"github.com/reelbingo/promo/core/participant"
)

var contextParticipantKey = "participant"

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Email        string `json:"email,omitempty"`
	IsManager    bool   `json:"is_manager,omitempty"` // -> MANAGER PORTAL
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "participantToken",
		Claims:        new(Claims),
	}
}

func GetParticipantClaims(conf *core.Config, p participant.Participant, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   p.ID,
			Audience:  "Bingo",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Email:        p.Email,
		IsManager:    p.IsManager,
	}
}

// GenerateToken generates a signed JWT token string representing the participant Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	jwtConf := newJWTConfig(conf)
	token := jwt.NewWithClaims(jwt.GetSigningMethod(jwtConf.SigningMethod), claims)

	ss, err := token.SignedString(jwtConf.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context, jwtConf middleware.JWTConfig) (Claims, error) {
	if token, ok := ctx.Get(jwtConf.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextParticipant loads the authenticated participant once per request.
func getContextParticipant(ctx echo.Context, svc participant.Service, jwtConf middleware.JWTConfig) (participant.Participant, error) {
	if p, ok := ctx.Get(contextParticipantKey).(participant.Participant); ok {
		return p, nil
	}

	claims, err := getContextClaims(ctx, jwtConf)
	if err != nil {
		return participant.Participant{}, err
	}
	p, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if core.IsNotFound(err) {
			return participant.Participant{}, errUnauthorized
		}
		return participant.Participant{}, errors.Wrap(err, "finding participant by ID")
	}
	ctx.Set(contextParticipantKey, p)
	return p, nil
}

func refreshToken(ctx echo.Context, conf *core.Config, svc participant.Service, jwtConf middleware.JWTConfig) (string, error) {
	claims, err := getContextClaims(ctx, jwtConf)
	if err != nil {
		return "", err
	}
	p, err := getContextParticipant(ctx, svc, jwtConf)
	if err != nil {
		return "", err
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := GenerateToken(conf, GetParticipantClaims(conf, p, claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}
