package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/models"
)

type TokenRepo struct{ *GormRepo }

func (r *GormRepo) Tokens() TokenRepo { return TokenRepo{r} }

// FindByUser returns the most recent token of the given purpose.
func (r TokenRepo) FindByUser(ctx context.Context, userID uuid.UUID, purpose string) (*models.Token, error) {
	var t models.Token
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND purpose = ?", userID, purpose).
		Order("created_at DESC").
		First(&t).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r TokenRepo) FindByValue(ctx context.Context, userID uuid.UUID, value, purpose string) (*models.Token, error) {
	var t models.Token
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND token = ? AND purpose = ?", userID, value, purpose).
		First(&t).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r TokenRepo) Create(ctx context.Context, t *models.Token) error {
	return translate(r.DB.WithContext(ctx).Create(t).Error)
}

func (r TokenRepo) Update(ctx context.Context, t *models.Token) error {
	return translate(r.DB.WithContext(ctx).Save(t).Error)
}

func (r TokenRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Token{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
