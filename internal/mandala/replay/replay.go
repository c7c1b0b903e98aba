package replay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mandala-magic/internal/mandala/engine"
	"mandala-magic/internal/mandala/models"
	"mandala-magic/internal/mandala/raster"
)

// ============================================================
// Frame Log
// ============================================================

const maxLineSize = 1 << 20

// ReadFrames читает записанные кадры детектора: один JSON-объект Frame на строку.
// Пустые строки и строки, начинающиеся с '#', пропускаются.
func ReadFrames(r io.Reader) ([]models.Frame, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var frames []models.Frame
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var f models.Frame
		if err := json.Unmarshal([]byte(text), &f); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		frames = append(frames, f)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read frames: %w", err)
	}
	return frames, nil
}

// ============================================================
// Offline Render
// ============================================================

// Summary описывает итог прогона записи через движок.
type Summary struct {
	Frames   int
	Rejected int
	Stats    engine.Stats
}

// Render прогоняет кадры через тот же движок, что и сервис. Кадры с нарушенным
// контрактом детектора пропускаются и считаются в Rejected.
func Render(frames []models.Frame, width, height int, settings models.Settings) (*raster.Canvas, Summary, error) {
	canvas, err := raster.NewCanvas(width, height)
	if err != nil {
		return nil, Summary{}, err
	}
	eng, err := engine.New(canvas, settings, nil)
	if err != nil {
		return nil, Summary{}, err
	}

	sum := Summary{Frames: len(frames)}
	for i, f := range frames {
		if _, err := eng.ProcessFrame(f); err != nil {
			log.Printf("[REPLAY] frame %d rejected: %v", i, err)
			sum.Rejected++
		}
	}
	sum.Stats = eng.Stats()
	return canvas, sum, nil
}

// WriteExport кодирует холст в dir и возвращает путь к файлу. Ошибка закрытия
// файла возвращается наравне с ошибкой кодирования.
func WriteExport(dir string, canvas *raster.Canvas, format raster.Format) (path string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir output: %w", err)
	}
	path = filepath.Join(dir, raster.Filename(time.Now(), format))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}()

	if err := raster.Export(file, canvas, format); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	return path, nil
}
