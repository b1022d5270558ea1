package models

import "time"

// TestKind различает два вида тестов.
type TestKind string

const (
	TestChoice TestKind = "choice"
	TestAction TestKind = "action"
)

// TestItem — тест одного из двух видов. Реализуется только Test и ActionTest.
type TestItem interface {
	TestID() string
	Kind() TestKind
	isTestItem()
}

// Test — тест с выбором ответа.
type Test struct {
	ID            string    `json:"id"`
	Question      string    `json:"text_of_question"`
	Answers       []string  `json:"answers"`
	CorrectAnswer string    `json:"correct_answer"`
	Level         int       `json:"level"`
	Theme         string    `json:"theme"`
	CreatedAt     time.Time `json:"created_at"`
}

func (t Test) TestID() string { return t.ID }
func (Test) Kind() TestKind   { return TestChoice }
func (Test) isTestItem()      {}

// ActionTest — тест, где ответ получается упорядоченными действиями.
type ActionTest struct {
	ID        string    `json:"id"`
	Example   string    `json:"example"`
	Actions   []string  `json:"actions"`
	Answer    string    `json:"answer"`
	Level     int       `json:"level"`
	Theme     string    `json:"theme"`
	CreatedAt time.Time `json:"created_at"`
}

func (t ActionTest) TestID() string { return t.ID }
func (ActionTest) Kind() TestKind   { return TestAction }
func (ActionTest) isTestItem()      {}

// SplitTests раскладывает смешанный список по видам.
func SplitTests(items []TestItem) ([]Test, []ActionTest) {
	choice := make([]Test, 0, len(items))
	action := make([]ActionTest, 0, len(items))

	for _, item := range items {
		switch t := item.(type) {
		case Test:
			choice = append(choice, t)
		case ActionTest:
			action = append(action, t)
		}
	}

	return choice, action
}

// ContentBlock — блок markdown текста для определённого уровня сложности.
type ContentBlock struct {
	Level int    `json:"level"`
	Body  string `json:"body"`
}

// Info — информационный материал.
type Info struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Content   []ContentBlock `json:"content"`
	Level     int            `json:"level"`
	Theme     string         `json:"theme"`
	CreatedAt time.Time      `json:"created_at"`
}
