package store

import "context"

// ocrEngineKey is the persistent-state record of which OCR engine
// produced the cached texts.
const ocrEngineKey = "ocr_engine"

// SyncOCREngine records the active OCR engine and reports whether it
// differs from the one recorded on the previous run. A change means the
// cached texts came from another engine and the caller should drop the
// OCR cache before serving them.
func SyncOCREngine(ctx context.Context, st StateStore, engineName string) (bool, error) {
	prev, ok := st.GetState(ctx, ocrEngineKey)
	if ok && prev == engineName {
		return false, nil
	}
	if err := st.SetState(ctx, ocrEngineKey, engineName); err != nil {
		return false, err
	}
	return ok, nil
}
