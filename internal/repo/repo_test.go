package repo

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Skotchmaster/storefront/internal/models"
)

func newTestRepo(t *testing.T) *GormRepo {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Token{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return New(db)
}

func TestUserRepo_CreateAndFind(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	u := &models.User{Email: " Ada@Example.com ", Password: "Secret1!", FirstName: "Ada", LastName: "L", IsUser: true}
	require.NoError(t, r.Users().Create(ctx, u))
	require.NotEqual(t, uuid.Nil, u.ID)

	byEmail, err := r.Users().FindByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, "ada@example.com", byEmail.Email)
	assert.True(t, byEmail.CheckPassword("Secret1!"))
	assert.False(t, byEmail.CheckPassword("secret1!"))

	byID, err := r.Users().FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, byID.Email)
}

func TestUserRepo_NotFoundAndDuplicate(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	_, err := r.Users().FindByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.Users().FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, r.Users().Create(ctx, &models.User{Email: "a@b.com", Password: "x", FirstName: "a", LastName: "b"}))
	err = r.Users().Create(ctx, &models.User{Email: "A@B.com", Password: "y", FirstName: "c", LastName: "d"})
	assert.ErrorIs(t, err, ErrAlreadyExist)
}

func TestUserRepo_UpdateRehashesPassword(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	u := &models.User{Email: "a@b.com", Password: "Secret1!", FirstName: "a", LastName: "b"}
	require.NoError(t, r.Users().Create(ctx, u))
	oldHash := u.PasswordHash

	u.Password = "Changed-pass1"
	require.NoError(t, r.Users().Update(ctx, u))

	got, err := r.Users().FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, oldHash, got.PasswordHash)
	assert.True(t, got.CheckPassword("Changed-pass1"))
}

func TestTokenRepo_Lifecycle(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	userID := uuid.New()

	login := &models.Token{UserID: userID, Token: "login-1", Purpose: models.PurposeLogin, ExpiresAt: time.Now().Add(time.Hour)}
	reset := &models.Token{UserID: userID, Token: "reset-1", Purpose: models.PurposeForgotPassword, ExpiresAt: time.Now().Add(15 * time.Minute)}
	require.NoError(t, r.Tokens().Create(ctx, login))
	require.NoError(t, r.Tokens().Create(ctx, reset))

	got, err := r.Tokens().FindByUser(ctx, userID, models.PurposeLogin)
	require.NoError(t, err)
	assert.Equal(t, "login-1", got.Token)

	got.Token = "login-2"
	require.NoError(t, r.Tokens().Update(ctx, got))
	got, err = r.Tokens().FindByUser(ctx, userID, models.PurposeLogin)
	require.NoError(t, err)
	assert.Equal(t, "login-2", got.Token)

	byValue, err := r.Tokens().FindByValue(ctx, userID, "reset-1", models.PurposeForgotPassword)
	require.NoError(t, err)
	assert.Equal(t, reset.ID, byValue.ID)

	_, err = r.Tokens().FindByValue(ctx, userID, "reset-1", models.PurposeLogin)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, r.Tokens().Delete(ctx, reset.ID))
	assert.ErrorIs(t, r.Tokens().Delete(ctx, reset.ID), ErrNotFound)

	var n int64
	require.NoError(t, r.DB.Model(&models.Token{}).Where("user_id = ?", userID).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}
