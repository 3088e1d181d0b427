package jwt

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"livechat-backend/utils"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt"
)

func appendRoleChar(token string, role Role) string {
	switch role {
	case RoleUser:
		return token + "1"
	case RoleAdmin:
		return token + "2"
	}
	return token
}

func expectedRoleChar(role Role) string {
	switch role {
	case RoleUser:
		return "1"
	case RoleAdmin:
		return "2"
	}
	return ""
}

func CreateToken(member Member, role Role, validUntil int64) (string, error) {
	secret, ok := RoleSecrets[role]
	if !ok {
		return "", fmt.Errorf("invalid role specified")
	}

	if validUntil == 0 {
		now := time.Now()
		validUntil = now.Add(time.Minute * 15).Unix()
	}

	claims := jwt.MapClaims{
		"id":    member.Id,
		"email": member.Email,
		"exp":   validUntil,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}

	return appendRoleChar(tokenString, role), nil
}

func CreateTokenWithRefresh(member Member, role Role, validUntil int64) (TokenResponse, error) {
	accessToken, err := CreateToken(member, role, validUntil)
	if err != nil {
		return TokenResponse{}, err
	}

	refreshTokenRaw := utils.CreateToken()
	refreshToken := appendRoleChar(refreshTokenRaw, role)

	memberData := map[string]string{
		"id":    strconv.FormatInt(member.Id, 10),
		"email": member.Email,
	}
	memberDataJSON, _ := json.Marshal(memberData)

	err = RedisClient.Set(context.Background(), refreshTokenRaw, memberDataJSON, RefreshTokenTTL).Err()
	if err != nil {
		return TokenResponse{}, err
	}

	return TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// ParseToken validates the trailing role character, the signature for the
// role's secret, and expiry. Returns the raw claims map.
func ParseToken(tokenString string, role Role) (jwt.MapClaims, error) {
	if len(tokenString) == 0 {
		return nil, fmt.Errorf("token string is empty")
	}

	if tokenString[len(tokenString)-1:] != expectedRoleChar(role) {
		return nil, fmt.Errorf("invalid role character in token")
	}
	raw := tokenString[:len(tokenString)-1]

	secret, ok := RoleSecrets[role]
	if !ok {
		return nil, fmt.Errorf("invalid role specified")
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}

// MemberFromClaims extracts the member identity. The id claim round-trips
// through JSON as float64.
func MemberFromClaims(claims jwt.MapClaims) (Member, error) {
	idRaw, ok := claims["id"].(float64)
	if !ok || idRaw <= 0 {
		return Member{}, fmt.Errorf("token missing member id")
	}
	email, _ := claims["email"].(string)

	return Member{
		Id:    int64(idRaw),
		Email: email,
	}, nil
}

func RefreshToken(refreshToken string, role Role) (string, error) {
	if len(refreshToken) == 0 {
		return "", fmt.Errorf("refresh token is empty")
	}
	if refreshToken[len(refreshToken)-1:] != expectedRoleChar(role) {
		return "", fmt.Errorf("invalid role character in refresh token")
	}
	refreshTokenRaw := refreshToken[:len(refreshToken)-1]

	val, err := RedisClient.Get(context.Background(), refreshTokenRaw).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("invalid refresh token")
	} else if err != nil {
		return "", err
	}

	var memberData map[string]string
	if err := json.Unmarshal([]byte(val), &memberData); err != nil {
		return "", fmt.Errorf("invalid token data")
	}

	id, err := strconv.ParseInt(memberData["id"], 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid token data")
	}

	member := Member{
		Id:    id,
		Email: memberData["email"],
	}

	err = RedisClient.Expire(context.Background(), refreshTokenRaw, RefreshTokenTTL).Err()
	if err != nil {
		return "", fmt.Errorf("failed to update refresh token expiration: %v", err)
	}

	return CreateToken(member, role, 0)
}
