package testutil

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/reelbingo/promo/core"
	"github.com/reelbingo/promo/core/board"
	"github.com/reelbingo/promo/core/participant"
	logsvc "github.com/reelbingo/promo/services/logger"
)

// NewLogger returns a logger that reports nowhere.
func NewLogger() core.Logger {
	lgr := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), core.NewTestConfig())
	lgr.Enable(false)
	return lgr
}

func createParticipant(
	t *testing.T,
	repo participant.Repository,
	progress participant.ProgressCreator,
	email, pwd string,
	isManager bool,
	createdAt ...time.Time,
) participant.Participant {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	p := participant.Participant{
		ID:        uuid.NewString(),
		Email:     email,
		IsManager: isManager,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := p.SetPassword(pwd); err != nil {
			t.Fatalf("createParticipant() failed: %v", err)
		}
	}
	ctx := context.Background()
	p, err := repo.CreateParticipant(ctx, p)
	if err != nil {
		t.Fatalf("createParticipant() failed: %v", err)
	}
	if progress != nil {
		if _, err = progress.CreateProgress(ctx, board.Progress{ParticipantID: p.ID, UpdatedAt: tstamp}); err != nil {
			t.Fatalf("createParticipant() failed: %v", err)
		}
	}
	return p
}

// CreateParticipant stores a participant with an empty board.
func CreateParticipant(
	t *testing.T,
	repo participant.Repository,
	progress participant.ProgressCreator,
	email, pwd string,
	createdAt ...time.Time,
) participant.Participant {
	return createParticipant(t, repo, progress, email, pwd, false, createdAt...)
}

// CreateManager stores a manager. Managers have no board.
func CreateManager(t *testing.T, repo participant.Repository, email, pwd string) participant.Participant {
	return createParticipant(t, repo, nil, email, pwd, true)
}

// PNG returns a small valid PNG image.
func PNG(t *testing.T) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("PNG() failed: %v", err)
	}
	return buf.Bytes()
}
