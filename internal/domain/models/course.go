package models

import (
	"slices"
	"time"
)

// CellKind — тип контента в ячейке уровня.
type CellKind string

const (
	CellInfo CellKind = "info"
	CellTest CellKind = "test"
)

// Valid сообщает, известен ли тип.
func (k CellKind) Valid() bool {
	return k == CellInfo || k == CellTest
}

// LevelCell — один размещённый в уровне курса элемент контента.
// ID ячейки не совпадает с ID контента, на который она ссылается.
type LevelCell struct {
	ID           string   `json:"id"`
	ContentIDs   []string `json:"content_ids"`
	Title        string   `json:"title"`
	MiniImage    string   `json:"mini_image"`
	SuccessImage string   `json:"success_image"`
	Kind         CellKind `json:"type_"`
	TestsCount   *int     `json:"n_of_tests,omitempty"`
}

// Levels отображает номер уровня в упорядоченный список ячеек.
// Пустой уровень представлен отсутствием ключа.
type Levels map[int][]LevelCell

// Course определяет модель курса
type Course struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Levels      Levels    `json:"levels"`
	CreatedAt   time.Time `json:"created_at"`
}

// Append добавляет ячейку в конец уровня, создавая уровень при необходимости.
func (l Levels) Append(level int, cell LevelCell) {
	l[level] = append(l[level], cell)
}

// Index возвращает позицию ячейки с id в уровне или -1.
func (l Levels) Index(level int, id string) int {
	return slices.IndexFunc(l[level], func(c LevelCell) bool {
		return c.ID == id
	})
}

// Find возвращает ячейку по id.
func (l Levels) Find(level int, id string) (LevelCell, bool) {
	i := l.Index(level, id)
	if i < 0 {
		return LevelCell{}, false
	}

	return l[level][i], true
}

// Remove удаляет ячейку по id. Опустевший уровень удаляется целиком.
func (l Levels) Remove(level int, id string) bool {
	i := l.Index(level, id)
	if i < 0 {
		return false
	}

	cells := slices.Delete(l[level], i, i+1)
	if len(cells) == 0 {
		delete(l, level)
		return true
	}
	l[level] = cells

	return true
}

// Replace заменяет ячейку на месте, сохраняя её позицию и id.
func (l Levels) Replace(level int, id string, cell LevelCell) bool {
	i := l.Index(level, id)
	if i < 0 {
		return false
	}

	cell.ID = id
	l[level][i] = cell

	return true
}
