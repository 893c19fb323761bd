package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/parts-cli/internal/model"
	"github.com/sells-group/parts-cli/internal/store"
	"github.com/sells-group/parts-cli/pkg/notion"
)

// ReviewBoard mirrors review-queue items onto a Notion database. A nil
// board is valid and does nothing.
type ReviewBoard struct {
	client notion.Client
	dbID   string
}

// NewReviewBoard returns a board for dbID, or nil when either the client or
// the database is not configured.
func NewReviewBoard(client notion.Client, dbID string) *ReviewBoard {
	if client == nil || dbID == "" {
		return nil
	}
	return &ReviewBoard{client: client, dbID: dbID}
}

// EnqueueReview stores item in the review queue and, when a board is
// configured, creates its Notion card. A board failure is logged and the
// stored item is kept.
func EnqueueReview(ctx context.Context, st store.Store, board *ReviewBoard, item *model.ReviewItem, agreement float64) error {
	if err := st.EnqueueReview(ctx, item); err != nil {
		return eris.Wrap(err, "review: enqueue")
	}
	if board == nil {
		return nil
	}

	pageID, err := notion.CreateReviewPage(ctx, board.client, board.dbID, notion.ReviewPage{
		MPN:           item.MPN,
		RunID:         item.RunID,
		Reason:        item.Reason,
		Disagreements: item.Disagreements,
		Agreement:     agreement,
	})
	if err != nil {
		zap.L().Warn("review: failed to create notion page", zap.String("mpn", item.MPN), zap.Error(err))
		return nil
	}

	item.NotionPageID = pageID
	if err := st.SetReviewPage(ctx, item.ID, pageID); err != nil {
		zap.L().Warn("review: failed to record notion page", zap.String("review_id", item.ID), zap.Error(err))
	}
	return nil
}

// ResolveReview marks a review item resolved and closes its Notion card.
func ResolveReview(ctx context.Context, st store.Store, board *ReviewBoard, id string) (*model.ReviewItem, error) {
	item, err := st.GetReview(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := st.ResolveReview(ctx, id); err != nil {
		return nil, err
	}
	item.Resolved = true

	if board != nil && item.NotionPageID != "" {
		if err := notion.ResolveReviewPage(ctx, board.client, item.NotionPageID); err != nil {
			return item, eris.Wrap(err, "review: resolve notion page")
		}
	}
	return item, nil
}
