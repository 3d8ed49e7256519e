package selection

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"

	"comicvox/pkg/events"
	"comicvox/pkg/model"
	"comicvox/pkg/ocr"
	"comicvox/pkg/queue"
)

type extractionResult struct {
	imageID string
	text    string
	cached  bool
}

// Process extracts text from every confirmed selection, in order. Each
// selection becomes one queue job; previously extracted texts are
// discarded so a reprocess reflects the current page. Returns after
// enqueueing; progress and completion arrive as events.
func (s *Store) Process(ctx context.Context) error {
	sels := s.Selections()

	s.queue.ClearQueue()
	s.mu.Lock()
	s.texts = make(map[textKey]model.ExtractedText)
	s.mu.Unlock()

	if len(sels) == 0 {
		s.bus.Publish(events.ExtractionCompleted{Stats: s.queue.Stats()})
		return nil
	}

	for _, sel := range sels {
		s.queue.AddItem(s.extractionTask(sel), queue.Metadata{
			"image_id": sel.ImageID,
			"order":    sel.Order,
		})
	}
	s.queue.StartProcessing(ctx)
	slog.Info("Selection: extraction started", "selections", len(sels))
	return nil
}

func (s *Store) extractionTask(sel model.Selection) queue.Task {
	return func(ctx context.Context) (any, error) {
		img, err := s.resolver.Resolve(ctx, sel)
		if err != nil {
			return nil, err
		}

		data, err := s.resolver.ImageData(ctx, img.ID)
		if err != nil {
			return nil, fmt.Errorf("fetch image %s: %w", img.ID, err)
		}

		sum := sha256.Sum256(data)
		hash := hex.EncodeToString(sum[:])
		if s.cache != nil {
			if text, ok := s.cache.GetOCRText(ctx, hash, sel.Rect); ok {
				return extractionResult{imageID: img.ID, text: text, cached: true}, nil
			}
		}

		decoded, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode image %s: %w", img.ID, err)
		}

		region, err := RenderRegion(decoded, sel.Rect, img)
		if err != nil {
			return nil, err
		}

		text, err := s.proc.ProcessImage(ctx, region)
		if err != nil {
			return nil, err
		}

		if s.cache != nil {
			if err := s.cache.SetOCRText(ctx, hash, sel.Rect, text); err != nil {
				slog.Warn("Selection: OCR cache write failed", "error", err)
			}
		}
		return extractionResult{imageID: img.ID, text: text}, nil
	}
}

// bindQueue installs the queue callbacks translating job outcomes into
// stored texts and events.
func (s *Store) bindQueue() {
	s.queue.OnItemProcessed(func(result any, metadata queue.Metadata, index int) {
		res, ok := result.(extractionResult)
		if !ok {
			slog.Error("Selection: unexpected queue result type", "index", index)
			return
		}
		order, _ := metadata["order"].(int)
		s.setText(model.ExtractedText{
			ImageID:        res.imageID,
			SelectionIndex: order,
			Text:           res.text,
			ProcessedText:  ocr.NormalizeText(res.text),
		})
		slog.Debug("Selection: text extracted", "order", order, "cached", res.cached)
		s.publishProgress()
	})

	s.queue.OnError(func(err error, metadata queue.Metadata, index int) {
		order, _ := metadata["order"].(int)
		imageID, _ := metadata["image_id"].(string)
		slog.Warn("Selection: extraction failed", "order", order, "image_id", imageID, "error", err)
		s.setText(model.ExtractedText{
			ImageID:        imageID,
			SelectionIndex: order,
			Text:           FailedTextMarker,
			ProcessedText:  FailedTextMarker,
			Failed:         true,
		})
		s.bus.Publish(events.ExtractionItemFailed{
			Index:   order,
			ImageID: imageID,
			Reason:  err.Error(),
		})
		s.publishProgress()
	})

	s.queue.OnQueueCompleted(func(stats model.QueueStats) {
		slog.Info("Selection: extraction completed", "processed", stats.ProcessedItems, "total", stats.TotalItems)
		s.bus.Publish(events.ExtractionCompleted{Stats: stats})
	})
}

func (s *Store) publishProgress() {
	stats := s.queue.Stats()
	s.bus.Publish(events.ExtractionProgress{
		Processed: stats.ProcessedItems,
		Total:     stats.TotalItems,
		Progress:  stats.Progress,
	})
}
