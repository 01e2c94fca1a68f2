package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"videoquiz_backend/internal/model"
	"videoquiz_backend/internal/util"
)

func TestCertificateEligibility(t *testing.T) {
	env := newQuizEnv(t)
	user := createUser(t, env.db, "a@example.com")

	// 空目录不签发
	eligible, err := env.certificate.CheckEligibility(user.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if eligible {
		t.Fatal("empty catalog must not be eligible")
	}

	videos, qs := setupSequence(t, env, 2)
	ctx := context.Background()

	if _, err := env.certificate.Get(user.ID); !errors.Is(err, util.ErrNotEligible) {
		t.Fatalf("expected ErrNotEligible before any pass, got %v", err)
	}

	// 只通过一半仍不够
	if _, err := env.quiz.StartOrResume(ctx, user.ID, videos[0].ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	answerAll(t, env, user.ID, videos[0].ID, true, qs[videos[0].ID])
	if _, err := env.quiz.Submit(ctx, user.ID, videos[0].ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := env.certificate.Get(user.ID); !errors.Is(err, util.ErrNotEligible) {
		t.Fatalf("expected ErrNotEligible at partial completion, got %v", err)
	}
}

// 全部通过后证书随最后一次提交自动签发
func TestCertificateIssuedOnFinalPass(t *testing.T) {
	env := newQuizEnv(t)
	user := createUser(t, env.db, "a@example.com")
	videos, qs := setupSequence(t, env, 2)
	ctx := context.Background()

	for _, v := range videos {
		if _, err := env.quiz.StartOrResume(ctx, user.ID, v.ID); err != nil {
			t.Fatalf("start %d: %v", v.ID, err)
		}
		answerAll(t, env, user.ID, v.ID, true, qs[v.ID])
		if _, err := env.quiz.Submit(ctx, user.ID, v.ID); err != nil {
			t.Fatalf("submit %d: %v", v.ID, err)
		}
	}

	cert, err := env.certificate.Get(user.ID)
	if err != nil {
		t.Fatalf("get certificate: %v", err)
	}
	if cert.Serial == nil || !strings.HasPrefix(*cert.Serial, "VQ-") {
		t.Fatalf("expected serial, got %v", cert.Serial)
	}
	if cert.IssueDate.IsZero() {
		t.Fatal("issue date must be set")
	}
}

func TestCertificateIssueIsIdempotent(t *testing.T) {
	env := newQuizEnv(t)
	user := createUser(t, env.db, "a@example.com")
	videos, qs := setupSequence(t, env, 1)
	ctx := context.Background()

	if _, err := env.quiz.StartOrResume(ctx, user.ID, videos[0].ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	answerAll(t, env, user.ID, videos[0].ID, true, qs[videos[0].ID])
	if _, err := env.quiz.Submit(ctx, user.ID, videos[0].ID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	first, err := env.certificate.IssueIfEligible(user.ID)
	if err != nil {
		t.Fatalf("first issue: %v", err)
	}
	second, err := env.certificate.IssueIfEligible(user.ID)
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}
	if first.Serial == nil || second.Serial == nil {
		t.Fatalf("serials must be set: %+v vs %+v", first, second)
	}
	if first.ID != second.ID || *first.Serial != *second.Serial {
		t.Fatalf("re-issue must return same certificate: %+v vs %+v", first, second)
	}
}

func TestCertificateDownloadURL(t *testing.T) {
	env := newQuizEnv(t)
	user := createUser(t, env.db, "a@example.com")
	videos, qs := setupSequence(t, env, 1)
	ctx := context.Background()

	if _, err := env.quiz.StartOrResume(ctx, user.ID, videos[0].ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	answerAll(t, env, user.ID, videos[0].ID, true, qs[videos[0].ID])
	if _, err := env.quiz.Submit(ctx, user.ID, videos[0].ID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	url, cert, err := env.certificate.DownloadURL(user.ID)
	if err != nil {
		t.Fatalf("download url: %v", err)
	}
	if cert.Serial == nil || !strings.Contains(url, *cert.Serial) {
		t.Fatalf("url %q must reference serial %v", url, cert.Serial)
	}
}

// 另一用户签发中断留下的未回填序列号行，不得阻塞后来者的签发
func TestIssueNotBlockedByStalledIssuance(t *testing.T) {
	env := newQuizEnv(t)
	stalled := createUser(t, env.db, "stalled@example.com")
	if err := env.certs.Create(&model.Certificate{
		UserID:    stalled.ID,
		IssueDate: time.Now(),
	}); err != nil {
		t.Fatalf("seed stalled certificate: %v", err)
	}

	user := createUser(t, env.db, "b@example.com")
	videos, qs := setupSequence(t, env, 1)
	ctx := context.Background()

	if _, err := env.quiz.StartOrResume(ctx, user.ID, videos[0].ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	answerAll(t, env, user.ID, videos[0].ID, true, qs[videos[0].ID])
	if _, err := env.quiz.Submit(ctx, user.ID, videos[0].ID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	cert, err := env.certificate.IssueIfEligible(user.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if cert.Serial == nil || !strings.HasPrefix(*cert.Serial, "VQ-") {
		t.Fatalf("expected serial, got %v", cert.Serial)
	}
}
