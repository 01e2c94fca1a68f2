package repository

import (
	"videoquiz_backend/internal/model"

	"gorm.io/gorm"
)

type CertificateRepository struct {
	DB *gorm.DB
}

func NewCertificateRepository(db *gorm.DB) *CertificateRepository {
	return &CertificateRepository{DB: db}
}

func (r *CertificateRepository) FindByUser(userID uint) (*model.Certificate, error) {
	var c model.Certificate
	if err := r.DB.Where("user_id = ?", userID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CertificateRepository) Create(c *model.Certificate) error {
	return r.DB.Create(c).Error
}

// Issue 单事务内创建记录并回填序列号，失败整体回滚，
// 不留下缺序列号的半成品行
func (r *CertificateRepository) Issue(c *model.Certificate, serial func(id uint) string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		s := serial(c.ID)
		c.Serial = &s
		return tx.Model(c).Update("serial", s).Error
	})
}
