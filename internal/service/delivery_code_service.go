package service

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/orderpulse/internal/constants"
	"github.com/orderpulse/internal/logger"
	"github.com/orderpulse/internal/models"
	"github.com/orderpulse/internal/queue"
	"github.com/orderpulse/internal/repository"

	"gorm.io/gorm"
)

// 随机码碰撞重抽上限：活跃码远少于码空间，正常几次内取到
const randomDrawAttempts = 64

// DeliveryCodeService 交付验证码服务。
// 不变量：同一订单同一时刻至多一条未验证且未过期的码；
// 重发复用同一行而不是新增记录。
type DeliveryCodeService struct {
	codeRepo    repository.DeliveryCodeRepository
	orderRepo   repository.OrderRepository
	queueClient *queue.Client
	channel     string
	expireHours int
}

// NewDeliveryCodeService 创建交付验证码服务
func NewDeliveryCodeService(codeRepo repository.DeliveryCodeRepository, orderRepo repository.OrderRepository, queueClient *queue.Client, channel string, expireHours int) *DeliveryCodeService {
	if channel != constants.DeliveryCodeChannelSequential {
		channel = constants.DeliveryCodeChannelRandom
	}
	if expireHours <= 0 {
		expireHours = constants.DeliveryCodeExpireHours
	}
	return &DeliveryCodeService{
		codeRepo:    codeRepo,
		orderRepo:   orderRepo,
		queueClient: queueClient,
		channel:     channel,
		expireHours: expireHours,
	}
}

// IssueResult 发码结果
type IssueResult struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Issue 为订单发放验证码。已有活跃码时复用该行并作废旧码；
// 已验证的码不可再发。发放成功后转入短信队列，发送失败不回滚发码。
func (s *DeliveryCodeService) Issue(orderID uint) (*IssueResult, error) {
	exists, err := s.orderRepo.ExistsByID(orderID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrOrderNotFound
	}

	now := time.Now()
	expiresAt := now.Add(time.Duration(s.expireHours) * time.Hour)

	var code string
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		codeRepo := s.codeRepo.WithTx(tx)

		existing, err := codeRepo.GetByOrderID(orderID)
		if err != nil {
			return err
		}
		if existing != nil && existing.IsVerified {
			return ErrCodeAlreadyVerified
		}

		code, err = s.generateCode(codeRepo, now)
		if err != nil {
			return err
		}

		if existing != nil {
			// 复用行：旧码随覆盖作废
			return codeRepo.UpdateFields(existing.ID, map[string]interface{}{
				"code":       code,
				"channel":    s.channel,
				"expires_at": expiresAt,
			})
		}
		return codeRepo.Create(&models.DeliveryCode{
			OrderID:   orderID,
			Code:      code,
			Channel:   s.channel,
			ExpiresAt: expiresAt,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("delivery_code_issued",
		"order_id", orderID,
		"channel", s.channel,
		"expires_at", expiresAt,
	)

	if err := s.queueClient.EnqueueDeliveryCodeSMS(queue.DeliveryCodeSMSPayload{
		OrderID: orderID,
		Code:    code,
	}); err != nil {
		logger.Errorw("delivery_code_sms_enqueue_failed", "order_id", orderID, "error", err)
	}

	return &IssueResult{Code: code, ExpiresAt: expiresAt}, nil
}

// Resend 重发验证码：作废旧码，同一行换新码并刷新有效期
func (s *DeliveryCodeService) Resend(orderID uint) (*IssueResult, error) {
	return s.Issue(orderID)
}

// Verify 校验验证码。命中活跃码则单次核销，记录验证人、地点与时间；
// 已核销的码不可重复核销。
func (s *DeliveryCodeService) Verify(orderID uint, code string, verifierID uint, location string) (bool, error) {
	record, err := s.codeRepo.GetByOrderID(orderID)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, ErrCodeNotFound
	}
	if record.IsVerified {
		return false, ErrCodeAlreadyVerified
	}
	now := time.Now()
	if now.After(record.ExpiresAt) {
		return false, ErrCodeExpired
	}
	if strings.TrimSpace(code) != record.Code {
		return false, ErrCodeMismatch
	}

	rows, err := s.codeRepo.MarkVerified(record.ID, map[string]interface{}{
		"is_verified":     true,
		"verified_at":     now,
		"verified_by":     verifierID,
		"verify_location": strings.TrimSpace(location),
	})
	if err != nil {
		return false, err
	}
	if rows == 0 {
		// 读取之后被并发核销抢先
		return false, ErrCodeAlreadyVerified
	}

	logger.Infow("delivery_code_verified",
		"order_id", orderID,
		"verified_by", verifierID,
		"location", location,
	)
	return true, nil
}

func (s *DeliveryCodeService) generateCode(codeRepo *repository.GormDeliveryCodeRepository, now time.Time) (string, error) {
	if s.channel == constants.DeliveryCodeChannelSequential {
		return s.nextSequentialCode(codeRepo, now.Year())
	}
	return s.drawRandomCode(codeRepo, now)
}

// nextSequentialCode 年度计数器取码：1111 起步，9999 后绕回 1111。
// 计数器行加锁读取，并发取号在行锁上排队。
func (s *DeliveryCodeService) nextSequentialCode(codeRepo *repository.GormDeliveryCodeRepository, year int) (string, error) {
	counter, err := codeRepo.GetCounterForYearForUpdate(year)
	if err != nil {
		return "", err
	}
	next := constants.DeliveryCodeSeqStart
	if counter != nil {
		next = counter.LastCode + 1
		if next > constants.DeliveryCodeSeqEnd {
			next = constants.DeliveryCodeSeqStart
		}
	} else {
		counter = &models.DeliveryCodeCounter{Year: year}
	}
	counter.LastCode = next
	if err := codeRepo.SaveCounter(counter); err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", next), nil
}

// drawRandomCode 均匀抽取 [1000, 9999]；与其他订单的活跃码撞码时重抽
func (s *DeliveryCodeService) drawRandomCode(codeRepo *repository.GormDeliveryCodeRepository, now time.Time) (string, error) {
	for attempt := 0; attempt < randomDrawAttempts; attempt++ {
		value := rand.Intn(constants.DeliveryCodeRandomMax-constants.DeliveryCodeRandomMin+1) + constants.DeliveryCodeRandomMin
		code := fmt.Sprintf("%04d", value)
		count, err := codeRepo.CountActiveByCode(code, now)
		if err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", fmt.Errorf("随机验证码重抽 %d 次仍然碰撞", randomDrawAttempts)
}
