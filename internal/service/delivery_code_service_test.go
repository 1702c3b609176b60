package service

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/orderpulse/internal/constants"
	"github.com/orderpulse/internal/models"
	"github.com/orderpulse/internal/queue"
	"github.com/orderpulse/internal/repository"

	"gorm.io/gorm"
)

func newDeliveryCodeService(t *testing.T, db *gorm.DB, channel string) *DeliveryCodeService {
	t.Helper()
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("new queue client failed: %v", err)
	}
	return NewDeliveryCodeService(
		repository.NewDeliveryCodeRepository(db),
		repository.NewOrderRepository(db),
		queueClient,
		channel,
		48,
	)
}

func TestSequentialCodeCycling(t *testing.T) {
	db := newTestDB(t, "delivery_cycling")
	svc := newDeliveryCodeService(t, db, constants.DeliveryCodeChannelSequential)
	codeRepo := repository.NewDeliveryCodeRepository(db)

	year := time.Now().Year()
	total := constants.DeliveryCodeSeqEnd - constants.DeliveryCodeSeqStart + 1
	seen := make(map[string]bool, total)
	previous := 0
	for i := 0; i < total; i++ {
		code, err := svc.nextSequentialCode(codeRepo, year)
		if err != nil {
			t.Fatalf("issue %d failed: %v", i, err)
		}
		if len(code) != 4 {
			t.Fatalf("code %q is not 4 digits", code)
		}
		value, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("code %q not numeric: %v", code, err)
		}
		if value < constants.DeliveryCodeSeqStart || value > constants.DeliveryCodeSeqEnd {
			t.Fatalf("code %d out of range", value)
		}
		if seen[code] {
			t.Fatalf("duplicate code %s within one cycle", code)
		}
		seen[code] = true
		if i > 0 && value != previous+1 {
			t.Fatalf("codes not ascending: %d after %d", value, previous)
		}
		previous = value
	}
	if len(seen) != total {
		t.Fatalf("expected %d distinct codes, got %d", total, len(seen))
	}

	// 第 8890 个绕回 1111
	wrapped, err := svc.nextSequentialCode(codeRepo, year)
	if err != nil {
		t.Fatalf("wrap issue failed: %v", err)
	}
	if wrapped != "1111" {
		t.Fatalf("expected wrap to 1111, got %s", wrapped)
	}
}

func TestSequentialCounterLockedInTransaction(t *testing.T) {
	db := newTestDB(t, "delivery_counter_lock")
	svc := newDeliveryCodeService(t, db, constants.DeliveryCodeChannelSequential)
	year := time.Now().Year()

	// 取号在事务内经由加锁读取递增计数器
	var first, second string
	if err := db.Transaction(func(tx *gorm.DB) error {
		code, err := svc.nextSequentialCode(repository.NewDeliveryCodeRepository(db).WithTx(tx), year)
		first = code
		return err
	}); err != nil {
		t.Fatalf("first issue failed: %v", err)
	}
	if err := db.Transaction(func(tx *gorm.DB) error {
		code, err := svc.nextSequentialCode(repository.NewDeliveryCodeRepository(db).WithTx(tx), year)
		second = code
		return err
	}); err != nil {
		t.Fatalf("second issue failed: %v", err)
	}
	if first != "1111" || second != "1112" {
		t.Fatalf("expected 1111 then 1112, got %s then %s", first, second)
	}

	counter, err := repository.NewDeliveryCodeRepository(db).GetCounterForYearForUpdate(year)
	if err != nil {
		t.Fatalf("locked read failed: %v", err)
	}
	if counter == nil || counter.LastCode != 1112 {
		t.Fatalf("counter not persisted, got %+v", counter)
	}
	if missing, err := repository.NewDeliveryCodeRepository(db).GetCounterForYearForUpdate(year + 1); err != nil || missing != nil {
		t.Fatalf("missing year must read as nil, got %+v err=%v", missing, err)
	}
}

func TestIssueReusesRowOnResend(t *testing.T) {
	db := newTestDB(t, "delivery_resend")
	customer := seedCustomer(t, db)
	order := seedOrder(t, db, customer.ID, constants.FulfillmentStatusConfirmed, constants.PaymentStatusPaid, false)
	svc := newDeliveryCodeService(t, db, constants.DeliveryCodeChannelSequential)

	first, err := svc.Issue(order.ID)
	if err != nil {
		t.Fatalf("first issue failed: %v", err)
	}
	if first.Code != "1111" {
		t.Fatalf("expected 1111, got %s", first.Code)
	}

	second, err := svc.Resend(order.ID)
	if err != nil {
		t.Fatalf("resend failed: %v", err)
	}
	if second.Code != "1112" {
		t.Fatalf("resend should issue the next code, got %s", second.Code)
	}

	// 复用同一行，不产生重复记录
	var count int64
	if err := db.Model(&models.DeliveryCode{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
		t.Fatalf("count codes failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("resend must reuse the row, got %d rows", count)
	}

	// 旧码失效，新码生效
	if ok, err := svc.Verify(order.ID, first.Code, 1, ""); ok || err == nil {
		t.Fatalf("stale code must not verify")
	}
	ok, err := svc.Verify(order.ID, second.Code, 1, "浦东新区营业部")
	if err != nil || !ok {
		t.Fatalf("active code should verify, got ok=%v err=%v", ok, err)
	}
}

func TestVerifyLifecycle(t *testing.T) {
	db := newTestDB(t, "delivery_verify")
	customer := seedCustomer(t, db)
	order := seedOrder(t, db, customer.ID, constants.FulfillmentStatusConfirmed, constants.PaymentStatusPaid, false)
	svc := newDeliveryCodeService(t, db, constants.DeliveryCodeChannelSequential)

	if _, err := svc.Verify(order.ID, "1111", 1, ""); !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("expected ErrCodeNotFound before issuance, got %v", err)
	}

	issued, err := svc.Issue(order.ID)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if ok, err := svc.Verify(order.ID, "9999", 1, ""); ok || !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("expected ErrCodeMismatch, got ok=%v err=%v", ok, err)
	}

	ok, err := svc.Verify(order.ID, issued.Code, 42, "徐汇区门店")
	if err != nil || !ok {
		t.Fatalf("verify failed: ok=%v err=%v", ok, err)
	}

	var record models.DeliveryCode
	if err := db.Where("order_id = ?", order.ID).First(&record).Error; err != nil {
		t.Fatalf("reload code failed: %v", err)
	}
	if !record.IsVerified || record.VerifiedAt == nil {
		t.Fatalf("verification must persist verified state")
	}
	if record.VerifiedBy == nil || *record.VerifiedBy != 42 {
		t.Fatalf("verifier identity not recorded: %v", record.VerifiedBy)
	}
	if record.VerifyLocation != "徐汇区门店" {
		t.Fatalf("verify location not recorded: %s", record.VerifyLocation)
	}

	// 单次核销
	if ok, err := svc.Verify(order.ID, issued.Code, 42, ""); ok || !errors.Is(err, ErrCodeAlreadyVerified) {
		t.Fatalf("verified code must not verify again, got ok=%v err=%v", ok, err)
	}
	// 已核销的码不可再发
	if _, err := svc.Issue(order.ID); !errors.Is(err, ErrCodeAlreadyVerified) {
		t.Fatalf("issuing over a verified code must fail, got %v", err)
	}
}

func TestMarkVerifiedSingleWinner(t *testing.T) {
	db := newTestDB(t, "delivery_verify_race")
	customer := seedCustomer(t, db)
	order := seedOrder(t, db, customer.ID, constants.FulfillmentStatusConfirmed, constants.PaymentStatusPaid, false)
	svc := newDeliveryCodeService(t, db, constants.DeliveryCodeChannelSequential)

	if _, err := svc.Issue(order.ID); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	var record models.DeliveryCode
	if err := db.Where("order_id = ?", order.ID).First(&record).Error; err != nil {
		t.Fatalf("reload code failed: %v", err)
	}

	// 核销更新带未核销条件，两个并发核销只有一方能命中
	codeRepo := repository.NewDeliveryCodeRepository(db)
	now := time.Now()
	updates := map[string]interface{}{
		"is_verified": true,
		"verified_at": now,
		"verified_by": uint(7),
	}
	rows, err := codeRepo.MarkVerified(record.ID, updates)
	if err != nil || rows != 1 {
		t.Fatalf("first verification should win, got rows=%d err=%v", rows, err)
	}
	rows, err = codeRepo.MarkVerified(record.ID, updates)
	if err != nil {
		t.Fatalf("second verification errored: %v", err)
	}
	if rows != 0 {
		t.Fatalf("verified row must not be claimed twice, got rows=%d", rows)
	}
}

func TestVerifyExpiredCode(t *testing.T) {
	db := newTestDB(t, "delivery_expired")
	customer := seedCustomer(t, db)
	order := seedOrder(t, db, customer.ID, constants.FulfillmentStatusConfirmed, constants.PaymentStatusPaid, false)
	svc := newDeliveryCodeService(t, db, constants.DeliveryCodeChannelSequential)

	issued, err := svc.Issue(order.ID)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if err := db.Model(&models.DeliveryCode{}).Where("order_id = ?", order.ID).
		Update("expires_at", time.Now().Add(-time.Hour)).Error; err != nil {
		t.Fatalf("expire code failed: %v", err)
	}

	if ok, err := svc.Verify(order.ID, issued.Code, 1, ""); ok || !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("expected ErrCodeExpired, got ok=%v err=%v", ok, err)
	}

	// 过期后重发：同一行、新有效期
	reissued, err := svc.Resend(order.ID)
	if err != nil {
		t.Fatalf("resend after expiry failed: %v", err)
	}
	if !reissued.ExpiresAt.After(time.Now()) {
		t.Fatalf("resend must refresh the expiry window")
	}
}

func TestRandomCodeRange(t *testing.T) {
	db := newTestDB(t, "delivery_random")
	customer := seedCustomer(t, db)
	svc := newDeliveryCodeService(t, db, constants.DeliveryCodeChannelRandom)

	for i := 0; i < 20; i++ {
		order := seedOrder(t, db, customer.ID, constants.FulfillmentStatusConfirmed, constants.PaymentStatusPaid, false)
		issued, err := svc.Issue(order.ID)
		if err != nil {
			t.Fatalf("issue %d failed: %v", i, err)
		}
		value, err := strconv.Atoi(issued.Code)
		if err != nil {
			t.Fatalf("code %q not numeric: %v", issued.Code, err)
		}
		if value < constants.DeliveryCodeRandomMin || value > constants.DeliveryCodeRandomMax {
			t.Fatalf("random code %d out of [%d, %d]", value, constants.DeliveryCodeRandomMin, constants.DeliveryCodeRandomMax)
		}
	}
}

func TestIssueUnknownOrder(t *testing.T) {
	db := newTestDB(t, "delivery_unknown_order")
	svc := newDeliveryCodeService(t, db, constants.DeliveryCodeChannelRandom)
	if _, err := svc.Issue(424242); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
