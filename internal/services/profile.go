package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"snapnet-backend/internal/clock"
	"snapnet-backend/internal/models"
	"snapnet-backend/internal/repository"
	"snapnet-backend/internal/storage"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const apiKeyPrefix = "snap_sk_"

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{2,30}$`)

// ProfileService handles bot registration, credentials and profile
// management
type ProfileService struct {
	profiles       ProfileStore
	payloads       storage.PayloadStore
	clock          clock.Clock
	jwtSecret      string
	viewerTokenTTL time.Duration
}

// NewProfileService creates a new profile service
func NewProfileService(profiles ProfileStore, payloads storage.PayloadStore, clk clock.Clock, jwtSecret string, viewerTokenTTL time.Duration) *ProfileService {
	return &ProfileService{
		profiles:       profiles,
		payloads:       payloads,
		clock:          clk,
		jwtSecret:      jwtSecret,
		viewerTokenTTL: viewerTokenTTL,
	}
}

// RegisterRequest describes a new bot
type RegisterRequest struct {
	Username    string  `json:"username"`
	DisplayName string  `json:"display_name"`
	Bio         *string `json:"bio,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	Public      *bool   `json:"is_public,omitempty"`
}

// generateAPIKey returns a fresh random key, shown to the caller only
// once at issue time
func generateAPIKey() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	return apiKeyPrefix + base64.RawURLEncoding.EncodeToString(raw), nil
}

func hashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Register creates a bot profile and issues its first API key. The
// raw key is returned once and only its hash is stored.
func (s *ProfileService) Register(ctx context.Context, req RegisterRequest) (*models.Profile, string, error) {
	if !usernamePattern.MatchString(req.Username) {
		return nil, "", fmt.Errorf("%w: username must be 2-30 chars of [a-zA-Z0-9_]", ErrInvalidInput)
	}
	if req.DisplayName == "" || len(req.DisplayName) > 80 {
		return nil, "", fmt.Errorf("%w: display_name must be 1-80 chars", ErrInvalidInput)
	}
	if req.Bio != nil && len(*req.Bio) > 200 {
		return nil, "", fmt.Errorf("%w: bio must be at most 200 chars", ErrInvalidInput)
	}

	taken, err := s.profiles.UsernameExists(ctx, req.Username)
	if err != nil {
		return nil, "", err
	}
	if taken {
		return nil, "", fmt.Errorf("username %q already taken: %w", req.Username, ErrConflict)
	}

	now := s.clock.Now()
	public := true
	if req.Public != nil {
		public = *req.Public
	}
	profile := &models.Profile{
		ID:          uuid.New().String(),
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		AvatarURL:   req.AvatarURL,
		Public:      public,
		CreatedAt:   now,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, "", err
	}

	rawKey, err := generateAPIKey()
	if err != nil {
		return nil, "", err
	}
	if err := s.profiles.InsertKey(ctx, hashKey(rawKey), profile.ID, now); err != nil {
		return nil, "", err
	}
	return profile, rawKey, nil
}

// Authenticate resolves a raw API key to its bot profile
func (s *ProfileService) Authenticate(ctx context.Context, rawKey string) (*models.Profile, error) {
	if rawKey == "" {
		return nil, ErrUnauthorized
	}
	key, err := s.profiles.GetKey(ctx, hashKey(rawKey))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("unknown api key: %w", ErrUnauthorized)
		}
		return nil, err
	}
	if key.RevokedAt != nil {
		return nil, fmt.Errorf("api key revoked: %w", ErrUnauthorized)
	}
	profile, err := s.profiles.GetByID(ctx, key.BotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("profile for key missing: %w", ErrUnauthorized)
		}
		return nil, err
	}
	return profile, nil
}

// RotateKey revokes every live key of a bot and issues a new one
func (s *ProfileService) RotateKey(ctx context.Context, botID string) (string, error) {
	now := s.clock.Now()
	if err := s.profiles.RevokeKeys(ctx, botID, now); err != nil {
		return "", err
	}
	rawKey, err := generateAPIKey()
	if err != nil {
		return "", err
	}
	if err := s.profiles.InsertKey(ctx, hashKey(rawKey), botID, now); err != nil {
		return "", err
	}
	return rawKey, nil
}

// UpdateRequest carries optional profile changes
type UpdateRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	Public      *bool   `json:"is_public,omitempty"`
}

// Update applies the non-nil fields of req to the profile
func (s *ProfileService) Update(ctx context.Context, botID string, req UpdateRequest) (*models.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, botID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if req.DisplayName != nil {
		if *req.DisplayName == "" || len(*req.DisplayName) > 80 {
			return nil, fmt.Errorf("%w: display_name must be 1-80 chars", ErrInvalidInput)
		}
		profile.DisplayName = *req.DisplayName
	}
	if req.Bio != nil {
		if len(*req.Bio) > 200 {
			return nil, fmt.Errorf("%w: bio must be at most 200 chars", ErrInvalidInput)
		}
		profile.Bio = req.Bio
	}
	if req.AvatarURL != nil {
		profile.AvatarURL = req.AvatarURL
	}
	if req.Public != nil {
		profile.Public = *req.Public
	}
	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, mapNotFound(err)
	}
	return profile, nil
}

// UploadAvatar decodes a base64 data URL, stores the image and points
// the profile at it
func (s *ProfileService) UploadAvatar(ctx context.Context, botID, imageB64 string) (*models.Profile, error) {
	data, mime, err := decodeDataURL(imageB64)
	if err != nil {
		return nil, err
	}
	key, err := s.payloads.Store(ctx, data, mime, botID)
	if err != nil {
		return nil, fmt.Errorf("avatar upload failed: %w", ErrStorageFailure)
	}
	url := s.payloads.PublicURL(key)
	return s.Update(ctx, botID, UpdateRequest{AvatarURL: &url})
}

// GetPublic retrieves a profile by username, hiding non-public ones
func (s *ProfileService) GetPublic(ctx context.Context, username string) (*models.Profile, error) {
	profile, err := s.profiles.GetByUsername(ctx, username)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if !profile.Public {
		return nil, fmt.Errorf("profile %q is not public: %w", username, ErrNotFound)
	}
	return profile, nil
}

// Block records that blocker no longer accepts content from username
func (s *ProfileService) Block(ctx context.Context, blockerID, username string) error {
	target, err := s.profiles.GetByUsername(ctx, username)
	if err != nil {
		return mapNotFound(err)
	}
	if target.ID == blockerID {
		return fmt.Errorf("%w: cannot block yourself", ErrInvalidInput)
	}
	return s.profiles.Block(ctx, blockerID, target.ID, s.clock.Now())
}

// Unblock removes a block edge
func (s *ProfileService) Unblock(ctx context.Context, blockerID, username string) error {
	target, err := s.profiles.GetByUsername(ctx, username)
	if err != nil {
		return mapNotFound(err)
	}
	return s.profiles.Unblock(ctx, blockerID, target.ID)
}

// IssueViewerToken signs a short-lived read-only session token for the
// dashboard surface
func (s *ProfileService) IssueViewerToken(botID string) (string, error) {
	now := s.clock.Now()
	claims := jwt.MapClaims{
		"sub":   botID,
		"scope": "viewer",
		"exp":   now.Add(s.viewerTokenTTL).Unix(),
		"iat":   now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign viewer token: %w", err)
	}
	return signed, nil
}

// ValidateViewerToken checks a viewer session token and returns its
// subject
func (s *ProfileService) ValidateViewerToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid viewer token: %w", ErrUnauthorized)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["scope"] != "viewer" {
		return "", fmt.Errorf("invalid viewer claims: %w", ErrUnauthorized)
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("viewer token missing subject: %w", ErrUnauthorized)
	}
	return sub, nil
}

// decodeDataURL parses "data:<mime>;base64,<data>" or raw base64
func decodeDataURL(s string) ([]byte, string, error) {
	mime := "image/jpeg"
	payload := s
	if strings.HasPrefix(s, "data:") {
		header, rest, ok := strings.Cut(s, ",")
		if !ok {
			return nil, "", fmt.Errorf("%w: malformed data url", ErrInvalidInput)
		}
		payload = rest
		mime = strings.TrimPrefix(strings.SplitN(header, ";", 2)[0], "data:")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: invalid base64 image", ErrInvalidInput)
	}
	return data, mime, nil
}

// mapNotFound translates the repository sentinel into the service
// taxonomy
func mapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%v: %w", err, ErrNotFound)
	}
	return err
}
