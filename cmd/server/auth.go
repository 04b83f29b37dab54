package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jmolero/ComandaDB/core"
)

// AuthConfig configures server authentication.
type AuthConfig struct {
	// Enabled gates every request behind an AUTH command. If false, the
	// server commits under its default identity.
	Enabled bool `yaml:"enabled"`

	// JWTSecret is the shared secret for HS256 signing and validation.
	JWTSecret string `yaml:"jwt_secret"`

	// Issuer is stamped into issued tokens and, when set, required as the
	// "iss" claim of presented tokens.
	Issuer string `yaml:"issuer"`

	// TokenTTLMin is the lifetime of tokens issued for a PIN, in minutes.
	TokenTTLMin int `yaml:"token_ttl_min"`
}

// ConnectionState tracks per-connection authentication state.
type ConnectionState struct {
	identity      *core.Identity
	authenticated bool
	tokenExpiry   time.Time
}

// IsAuthenticated returns true if the connection has been authenticated.
func (cs *ConnectionState) IsAuthenticated() bool {
	return cs.authenticated
}

// Identity returns the connection's identity, or nil if not authenticated.
func (cs *ConnectionState) Identity() *core.Identity {
	return cs.identity
}

type authResult struct {
	identity  core.Identity
	token     string
	expiresAt time.Time
	err       error
}

// employeeIdentity builds the commit identity for an employee. Staff records
// carry no email address, so the role stands in for the mailbox.
func employeeIdentity(name, role string) core.Identity {
	return core.Identity{
		Name:  name,
		Email: role + "@comanda.local",
	}
}

// authenticatePIN looks up the employee owning the PIN and issues a signed
// session token carrying the employee's name and role.
func (s *Server) authenticatePIN(pin string) authResult {
	if s.authConfig == nil || s.authConfig.JWTSecret == "" {
		return authResult{err: errors.New("authentication not configured")}
	}

	result := s.engine.Get("SELECT * FROM employees WHERE pin = ?", pin)
	if !result.Success {
		return authResult{err: errors.New(result.Error)}
	}
	employee := result.Record()
	if employee == nil {
		return authResult{err: errors.New("unknown pin")}
	}

	name, _ := employee["name"].(string)
	role, _ := employee["role"].(string)

	ttl := time.Duration(s.authConfig.TokenTTLMin) * time.Minute
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	expiresAt := time.Now().Add(ttl)

	claims := jwt.MapClaims{
		"name": name,
		"role": role,
		"exp":  expiresAt.Unix(),
	}
	if s.authConfig.Issuer != "" {
		claims["iss"] = s.authConfig.Issuer
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(s.authConfig.JWTSecret))
	if err != nil {
		return authResult{err: fmt.Errorf("failed to sign token: %w", err)}
	}

	return authResult{
		identity:  employeeIdentity(name, role),
		token:     token,
		expiresAt: expiresAt,
	}
}

// validateJWT validates a session token and extracts the identity claims.
func (s *Server) validateJWT(tokenString string) authResult {
	if s.authConfig == nil || s.authConfig.JWTSecret == "" {
		return authResult{err: errors.New("authentication not configured")}
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.authConfig.JWTSecret), nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))

	if err != nil {
		return authResult{err: fmt.Errorf("invalid token: %w", err)}
	}
	if !token.Valid {
		return authResult{err: errors.New("invalid token")}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return authResult{err: errors.New("invalid token claims")}
	}

	if s.authConfig.Issuer != "" {
		issuer, _ := claims.GetIssuer()
		if issuer != s.authConfig.Issuer {
			return authResult{err: fmt.Errorf("invalid issuer: expected %s, got %s", s.authConfig.Issuer, issuer)}
		}
	}

	name, _ := claims["name"].(string)
	role, _ := claims["role"].(string)
	if name == "" {
		return authResult{err: errors.New("token missing name claim")}
	}

	var expiresAt time.Time
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}

	return authResult{
		identity:  employeeIdentity(name, role),
		expiresAt: expiresAt,
	}
}

// parseAuthCommand parses an AUTH command. Supported formats:
//   - AUTH PIN <pin>
//   - AUTH JWT <token>
func parseAuthCommand(line string) (authType, credential string, err error) {
	line = strings.TrimSpace(line)

	if !strings.HasPrefix(strings.ToUpper(line), "AUTH ") {
		return "", "", errors.New("not an AUTH command")
	}

	parts := strings.Fields(line)
	if len(parts) < 3 {
		return "", "", errors.New("invalid AUTH command: expected AUTH <type> <credentials>")
	}

	authType = strings.ToUpper(parts[1])
	credential = parts[2]

	switch authType {
	case "PIN", "JWT":
		return authType, credential, nil
	default:
		return "", "", fmt.Errorf("unsupported auth type: %s", authType)
	}
}

// handleAuth processes an AUTH command and returns the response.
func (s *Server) handleAuth(line string, state *ConnectionState) Response {
	authType, credential, err := parseAuthCommand(line)
	if err != nil {
		return Response{
			Success: false,
			Type:    "auth",
			Error:   err.Error(),
		}
	}

	var result authResult
	switch authType {
	case "PIN":
		result = s.authenticatePIN(credential)
	case "JWT":
		result = s.validateJWT(credential)
	}

	if result.err != nil {
		return Response{
			Success: false,
			Type:    "auth",
			Error:   result.err.Error(),
		}
	}

	state.identity = &result.identity
	state.authenticated = true
	state.tokenExpiry = result.expiresAt

	ar := AuthResponse{
		Authenticated: true,
		Identity:      fmt.Sprintf("%s <%s>", result.identity.Name, result.identity.Email),
		Token:         result.token,
	}
	if !result.expiresAt.IsZero() {
		ar.ExpiresIn = int(time.Until(result.expiresAt).Seconds())
	}

	data, _ := json.Marshal(ar)
	return Response{
		Success: true,
		Type:    "auth",
		Data:    data,
	}
}
