package auth

// Service authenticates the single configured operator and issues tokens.
type Service struct {
	username     string
	passwordHash string
	jwtManager   *JWTManager
}

// NewService creates the auth service from the configured credentials.
func NewService(username, passwordHash string, jwtManager *JWTManager) *Service {
	return &Service{
		username:     username,
		passwordHash: passwordHash,
		jwtManager:   jwtManager,
	}
}

// LoginResponse carries the issued token back to the client.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Login verifies the credentials and returns a signed access token.
func (s *Service) Login(username, password string) (*LoginResponse, error) {
	if username != s.username || !VerifyPassword(password, s.passwordHash) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwtManager.GenerateAccessToken(username)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   s.jwtManager.GetAccessTokenDuration(),
	}, nil
}

// Validate checks a bearer token and returns the operator claims.
func (s *Service) Validate(token string) (*Claims, error) {
	return s.jwtManager.ValidateAccessToken(token)
}
