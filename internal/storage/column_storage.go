package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/annel0/voxel-engine/internal/logging"
	"github.com/annel0/voxel-engine/internal/rle"
	"github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/zstd"
)

// ErrNotReady - хранилище закрыто или не открыто
var ErrNotReady = errors.New("хранилище не готово")

const columnPrefix = "column:"

// ColumnStorage хранит колонки сетки в BadgerDB. Значение ключа
// "column:x:y" - упакованные слова колонки (little-endian, по 8 байт),
// сжатые zstd.
type ColumnStorage struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool

	encoder *zstd.Encoder
	decoder *zstd.Decoder
	logger  *logging.Logger
}

// NewColumnStorage открывает хранилище в dataPath/columns.
// Пустой dataPath - хранилище в памяти.
func NewColumnStorage(dataPath string) (*ColumnStorage, error) {
	var opts badger.Options
	dbPath := ""
	if dataPath == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		dbPath = filepath.Join(dataPath, "columns")
		opts = badger.DefaultOptions(dbPath)
	}
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		db.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}

	return &ColumnStorage{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
		encoder: encoder,
		decoder: decoder,
		logger:  logging.GetStorageLogger(),
	}, nil
}

// Path возвращает каталог базы; пусто для хранилища в памяти
func (cs *ColumnStorage) Path() string { return cs.dbPath }

// Close закрывает хранилище данных
func (cs *ColumnStorage) Close() error {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	if !cs.isReady {
		return nil
	}

	cs.isReady = false
	cs.decoder.Close()
	cs.encoder.Close()
	return cs.db.Close()
}

func columnKey(x, y int) []byte {
	return []byte(fmt.Sprintf("%s%d:%d", columnPrefix, x, y))
}

func parseColumnKey(key []byte) (x, y int, err error) {
	_, err = fmt.Sscanf(string(key), columnPrefix+"%d:%d", &x, &y)
	return x, y, err
}

func (cs *ColumnStorage) encodeWords(words []uint64) []byte {
	raw := make([]byte, 8*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint64(raw[8*i:], w)
	}
	return cs.encoder.EncodeAll(raw, nil)
}

func (cs *ColumnStorage) decodeWords(data []byte) ([]uint64, error) {
	raw, err := cs.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("распаковка колонки: %w", err)
	}
	if len(raw)%8 != 0 {
		return nil, fmt.Errorf("%w: длина %d не кратна 8", rle.ErrCorruptColumn, len(raw))
	}
	words := make([]uint64, len(raw)/8)
	r := bytes.NewReader(raw)
	if err := binary.Read(r, binary.LittleEndian, words); err != nil {
		return nil, fmt.Errorf("чтение слов колонки: %w", err)
	}
	return words, nil
}

// SaveColumn сохраняет слова колонки (x, y). Пустая колонка удаляет ключ.
func (cs *ColumnStorage) SaveColumn(x, y int, words []uint64) error {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	if !cs.isReady {
		return ErrNotReady
	}

	err := cs.db.Update(func(txn *badger.Txn) error {
		if len(words) == 0 {
			return txn.Delete(columnKey(x, y))
		}
		return txn.Set(columnKey(x, y), cs.encodeWords(words))
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения колонки (%d,%d): %w", x, y, err)
	}
	return nil
}

// LoadColumn читает слова колонки; false - колонка не сохранена
func (cs *ColumnStorage) LoadColumn(x, y int) ([]uint64, bool, error) {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	if !cs.isReady {
		return nil, false, ErrNotReady
	}

	var data []byte
	err := cs.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(columnKey(x, y))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("ошибка чтения колонки (%d,%d): %w", x, y, err)
	}

	words, err := cs.decodeWords(data)
	if err != nil {
		return nil, false, fmt.Errorf("колонка (%d,%d): %w", x, y, err)
	}
	return words, true, nil
}

// Count возвращает число сохранённых колонок
func (cs *ColumnStorage) Count() (int, error) {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	if !cs.isReady {
		return 0, ErrNotReady
	}

	n := 0
	err := cs.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(columnPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// SaveGrid записывает все колонки сетки одной пакетной записью.
// Пустые колонки удаляются из хранилища. Возвращает число записанных колонок.
func SaveGrid[T any](cs *ColumnStorage, g rle.Grid[T]) (int, error) {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	if !cs.isReady {
		return 0, ErrNotReady
	}

	wb := cs.db.NewWriteBatch()
	defer wb.Cancel()

	saved := 0
	for c := range g.Columns() {
		key := columnKey(c.X(), c.Y())
		if c.IsEmpty() {
			if err := wb.Delete(key); err != nil {
				return saved, fmt.Errorf("удаление колонки (%d,%d): %w", c.X(), c.Y(), err)
			}
			continue
		}
		if err := wb.Set(key, cs.encodeWords(c.Words())); err != nil {
			return saved, fmt.Errorf("запись колонки (%d,%d): %w", c.X(), c.Y(), err)
		}
		saved++
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("ошибка сохранения сетки: %w", err)
	}

	cs.logger.Info("Сохранено %d колонок", saved)
	return saved, nil
}

// LoadGrid загружает все сохранённые колонки в g. Колонки, которых в g быть
// не может (вне плотной сетки), пропускаются с предупреждением.
// Возвращает число загруженных колонок.
func LoadGrid[T any](cs *ColumnStorage, g rle.Grid[T]) (int, error) {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	if !cs.isReady {
		return 0, ErrNotReady
	}

	loaded := 0
	err := cs.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(columnPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			x, y, err := parseColumnKey(item.Key())
			if err != nil {
				cs.logger.Warn("Некорректный ключ '%s': %v", item.Key(), err)
				continue
			}
			col := g.ColumnAt(x, y)
			if col == nil {
				cs.logger.Warn("Колонка (%d,%d) вне сетки, пропущена", x, y)
				continue
			}

			data, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			words, err := cs.decodeWords(data)
			if err != nil {
				return fmt.Errorf("колонка (%d,%d): %w", x, y, err)
			}
			if err := col.LoadWords(words); err != nil {
				return fmt.Errorf("колонка (%d,%d): %w", x, y, err)
			}
			loaded++
		}
		return nil
	})
	g.Invalidate()
	if err != nil {
		return loaded, fmt.Errorf("ошибка загрузки сетки: %w", err)
	}

	cs.logger.Info("Загружено %d колонок", loaded)
	return loaded, nil
}
