package block

import (
	"fmt"
	"sort"
	"strings"
)

// BlockID представляет идентификатор блока. Воздух в сетке не хранится:
// пустая ячейка и есть воздух.
type BlockID uint16

// Константы ID блоков
const (
	AirBlockID   BlockID = iota // 0
	StoneBlockID                // 1
	GrassBlockID                // 2
	WaterBlockID                // 3
	SandBlockID                 // 4
	DirtBlockID                 // 5

	// Породы глубже поверхности (начиная с 50)
	GravelBlockID  BlockID = 50
	BedrockBlockID BlockID = 51
	SnowBlockID    BlockID = 52
)

// Properties - то, что рендеру и API нужно знать о блоке
type Properties struct {
	Name  string
	Color [3]float32
	// Transparent блоки (вода) не закрывают соседние грани для глаза,
	// но в сетке хранятся как обычные значения
	Transparent bool
}

// registry неизменяем после инициализации пакета
var registry = map[BlockID]Properties{
	AirBlockID:     {Name: "air", Transparent: true},
	StoneBlockID:   {Name: "stone", Color: [3]float32{0.50, 0.50, 0.52}},
	GrassBlockID:   {Name: "grass", Color: [3]float32{0.33, 0.62, 0.24}},
	WaterBlockID:   {Name: "water", Color: [3]float32{0.20, 0.40, 0.80}, Transparent: true},
	SandBlockID:    {Name: "sand", Color: [3]float32{0.86, 0.80, 0.56}},
	DirtBlockID:    {Name: "dirt", Color: [3]float32{0.45, 0.32, 0.20}},
	GravelBlockID:  {Name: "gravel", Color: [3]float32{0.55, 0.53, 0.50}},
	BedrockBlockID: {Name: "bedrock", Color: [3]float32{0.15, 0.15, 0.15}},
	SnowBlockID:    {Name: "snow", Color: [3]float32{0.95, 0.96, 0.98}},
}

// Get возвращает описание для указанного ID
func Get(id BlockID) (Properties, bool) {
	props, exists := registry[id]
	return props, exists
}

// IsValidBlockID проверяет, является ли ID допустимым идентификатором блока
func IsValidBlockID(id BlockID) bool {
	_, exists := Get(id)
	return exists
}

// Name возвращает имя блока или "block#<id>" для незарегистрированных
func (id BlockID) Name() string {
	if props, ok := Get(id); ok {
		return props.Name
	}
	return fmt.Sprintf("block#%d", uint16(id))
}

func (id BlockID) String() string { return id.Name() }

// Color возвращает цвет блока; незарегистрированные - ярко-розовые
func (id BlockID) Color() [3]float32 {
	if props, ok := Get(id); ok {
		return props.Color
	}
	return [3]float32{1, 0, 1}
}

// ParseName ищет блок по имени без учёта регистра
func ParseName(name string) (BlockID, error) {
	for id, props := range registry {
		if strings.EqualFold(props.Name, name) {
			return id, nil
		}
	}
	return 0, fmt.Errorf("неизвестный блок %q", name)
}

// Names возвращает имена всех зарегистрированных блоков по возрастанию ID
func Names() []string {
	ids := make([]BlockID, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = registry[id].Name
	}
	return names
}
