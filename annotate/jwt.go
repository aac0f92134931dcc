package annotate

import (
	"fmt"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// SessionAuth is the identity carried by the gateway session JWT. Used
// to stamp audit fields on optimistic create patches. The signature is
// not verified client-side; the gateway remains the authority.
type SessionAuth struct {
	UserId   string
	UserName string
}

func ParseSessionAuthUnverified(authJwt string) (*SessionAuth, error) {
	parser := gojwt.NewParser()
	token, _, err := parser.ParseUnverified(authJwt, gojwt.MapClaims{})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(gojwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type")
	}

	sessionAuth := &SessionAuth{}

	if userId, ok := claims["user_id"]; ok {
		sessionAuth.UserId = fmt.Sprintf("%v", userId)
	}
	if userName, ok := claims["user_name"].(string); ok {
		sessionAuth.UserName = userName
	} else if userName, ok := claims["username"].(string); ok {
		sessionAuth.UserName = userName
	}

	return sessionAuth, nil
}
