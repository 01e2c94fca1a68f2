package service

import (
	"errors"
	"fmt"
	"time"

	"videoquiz_backend/internal/model"
	"videoquiz_backend/internal/repository"
	"videoquiz_backend/internal/util"
	"videoquiz_backend/pkg/monitoring"

	"gorm.io/gorm"
)

// CertificateService 在全部已发布视频通过后一次性签发证书
type CertificateService struct {
	CertRepo     *repository.CertificateRepository
	ProgressRepo *repository.ProgressRepository
	VideoRepo    *repository.VideoRepository
	Storage      *StorageService
}

func NewCertificateService(
	certRepo *repository.CertificateRepository,
	progressRepo *repository.ProgressRepository,
	videoRepo *repository.VideoRepository,
	storage *StorageService,
) *CertificateService {
	return &CertificateService{
		CertRepo:     certRepo,
		ProgressRepo: progressRepo,
		VideoRepo:    videoRepo,
		Storage:      storage,
	}
}

// CheckEligibility 已通过数等于在架视频数即可签发；目录为空时不签发
func (s *CertificateService) CheckEligibility(userID uint) (bool, error) {
	total, err := s.VideoRepo.CountAvailable()
	if err != nil {
		return false, err
	}
	if total == 0 {
		return false, nil
	}

	passed, err := s.ProgressRepo.CountPassedByUser(userID)
	if err != nil {
		return false, err
	}
	return passed >= total, nil
}

// IssueIfEligible get-or-create 语义：已有证书直接返回，决不重签或改写
func (s *CertificateService) IssueIfEligible(userID uint) (*model.Certificate, error) {
	existing, err := s.CertRepo.FindByUser(userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	eligible, err := s.CheckEligibility(userID)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, util.ErrNotEligible
	}

	cert := &model.Certificate{
		UserID:    userID,
		IssueDate: time.Now(),
	}
	// 序列号由用户 ID 与证书记录 ID 派生，签发后固定；
	// 创建与回填在同一事务内完成
	err = s.CertRepo.Issue(cert, func(id uint) string {
		return fmt.Sprintf("VQ-%04d-%06d", userID, id)
	})
	if err != nil {
		// 并发双写时用户唯一约束兜底，退回已有记录
		if fetched, ferr := s.CertRepo.FindByUser(userID); ferr == nil {
			return fetched, nil
		}
		return nil, err
	}

	monitoring.CertificatesIssued.Inc()
	return cert, nil
}

// Get 返回用户证书；尚未签发时尝试签发一次
func (s *CertificateService) Get(userID uint) (*model.Certificate, error) {
	cert, err := s.CertRepo.FindByUser(userID)
	if err == nil {
		return cert, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return s.IssueIfEligible(userID)
}

// DownloadURL 证书产物由外部渲染后放入存储，这里只负责定位
func (s *CertificateService) DownloadURL(userID uint) (string, *model.Certificate, error) {
	cert, err := s.Get(userID)
	if err != nil {
		return "", nil, err
	}
	if cert.ArtifactURL != "" {
		return cert.ArtifactURL, cert, nil
	}
	if s.Storage == nil || cert.Serial == nil {
		return "", cert, nil
	}
	return s.Storage.GetURL(fmt.Sprintf("certificates/%s.pdf", *cert.Serial)), cert, nil
}
