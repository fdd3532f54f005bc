//go:build integration

package steps

import (
	"fmt"
	"time"

	"github.com/cucumber/godog"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/business-planner/backend/internal/integration/persistence/model"
)

const defaultTestPassword = "SecurePass123!"

func registerAccountSteps(ctx *godog.ScenarioContext, test *testContext) {
	ctx.Step(`^a user exists with email "([^"]*)"$`, func(email string) error {
		return test.ensureUser(email, defaultTestPassword)
	})
	ctx.Step(`^a user exists with email "([^"]*)" and password "([^"]*)"$`, test.ensureUser)
	ctx.Step(`^the user is logged in with valid tokens$`, test.loginCurrentUser)
	ctx.Step(`^I am logged in as "([^"]*)"$`, test.loginAs)
	ctx.Step(`^a password reset token exists for "([^"]*)"$`, test.givenResetToken)
	ctx.Step(`^an expired password reset token exists$`, test.givenExpiredResetToken)
}

// ensureUser makes email the current user, inserting it on first use.
func (t *testContext) ensureUser(email, password string) error {
	var existing model.UserModel
	if t.db.DbConn.Where("email = ?", email).Limit(1).Find(&existing).RowsAffected == 1 {
		t.currentUserID = existing.ID
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	user := model.UserModel{
		ID:              uuid.New(),
		Email:           email,
		Name:            "Test User",
		PasswordHash:    string(hash),
		TermsAcceptedAt: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := t.db.DbConn.Create(&user).Error; err != nil {
		return fmt.Errorf("failed to insert user %s: %w", email, err)
	}
	t.currentUserID = user.ID
	return nil
}

func (t *testContext) loginCurrentUser() error {
	var user model.UserModel
	if err := t.db.DbConn.First(&user, "id = ?", t.currentUserID).Error; err != nil {
		return fmt.Errorf("no current user: %w", err)
	}
	return t.issueTokens(user.ID, user.Email)
}

func (t *testContext) loginAs(email string) error {
	if err := t.ensureUser(email, defaultTestPassword); err != nil {
		return err
	}
	return t.issueTokens(t.currentUserID, email)
}

// issueTokens signs a pair the way the API does and registers the refresh
// token so it can be rotated or revoked.
func (t *testContext) issueTokens(userID uuid.UUID, email string) error {
	now := time.Now().UTC()
	refreshTTL := 7 * 24 * time.Hour

	var err error
	if t.accessToken, err = signToken(userID, email, "access", now, 15*time.Minute); err != nil {
		return err
	}
	if t.refreshToken, err = signToken(userID, email, "refresh", now, refreshTTL); err != nil {
		return err
	}

	return t.db.DbConn.Create(&model.RefreshTokenModel{
		ID:        uuid.New(),
		Token:     t.refreshToken,
		UserID:    userID,
		ExpiresAt: now.Add(refreshTTL),
		CreatedAt: now,
	}).Error
}

func signToken(userID uuid.UUID, email, tokenType string, now time.Time, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id":    userID.String(),
		"email":      email,
		"token_type": tokenType,
		"iss":        testTokenIssuer,
		"sub":        userID.String(),
		"jti":        uuid.NewString(),
		"iat":        jwt.NewNumericDate(now),
		"nbf":        jwt.NewNumericDate(now),
		"exp":        jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

func (t *testContext) givenResetToken(email string) error {
	var user model.UserModel
	if err := t.db.DbConn.First(&user, "email = ?", email).Error; err != nil {
		return fmt.Errorf("user %s not found: %w", email, err)
	}
	t.resetToken = "reset-" + uuid.NewString()
	return t.insertResetToken(t.resetToken, user.ID, email, time.Hour)
}

func (t *testContext) givenExpiredResetToken() error {
	t.expiredToken = "expired-" + uuid.NewString()
	return t.insertResetToken(t.expiredToken, uuid.New(), "expired@example.com", -time.Hour)
}

func (t *testContext) insertResetToken(token string, userID uuid.UUID, email string, validFor time.Duration) error {
	now := time.Now().UTC()
	return t.db.DbConn.Create(&model.PasswordResetTokenModel{
		ID:        uuid.New(),
		Token:     token,
		UserID:    userID,
		Email:     email,
		ExpiresAt: now.Add(validFor),
		CreatedAt: now.Add(-time.Minute),
	}).Error
}
