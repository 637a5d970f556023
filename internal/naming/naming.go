package naming

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const ArchiveExt = ".zip"

// ArchiveName возвращает "<unix ms>-<nonce>.zip".
func ArchiveName(now time.Time) string {
	return fmt.Sprintf("%d-%s%s", now.UnixMilli(), uuid.NewString(), ArchiveExt)
}

// BatchDirName - случайное имя подкаталога для одной пачки изображений.
func BatchDirName() string {
	return uuid.NewString()
}

// StoredFileName сохраняет расширение исходного имени.
func StoredFileName(now time.Time, originalName string) string {
	return fmt.Sprintf("%d-%s%s", now.UnixMilli(), uuid.NewString(), filepath.Ext(originalName))
}

// WatermarkDir - каталог результата кодека рядом с каталогом пачки.
func WatermarkDir(batchDir, suffix string) string {
	return filepath.Clean(batchDir) + suffix
}
