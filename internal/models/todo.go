// Package modelsはTodoとユーザーを定義します。
package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// DeadlineLayout は期限の文字列表現 (<input type="date"> と同じ形式) です。
const DeadlineLayout = "2006-01-02"

// ErrInvalidDeadline は期限の形式が不正な場合のエラーです。
var ErrInvalidDeadline = errors.New("invalid deadline")

// Deadline は日付のみの期限です。ゼロ値は「期限なし」を表します。
type Deadline struct {
	date  time.Time
	valid bool
}

// NewDeadline は年月日から Deadline を作成します。
func NewDeadline(year int, month time.Month, day int) Deadline {
	return Deadline{date: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), valid: true}
}

// ParseDeadline は "YYYY-MM-DD" をパースします。空文字列は期限なしです。
func ParseDeadline(s string) (Deadline, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Deadline{}, nil
	}
	t, err := time.Parse(DeadlineLayout, s)
	if err != nil {
		return Deadline{}, fmt.Errorf("%w %q: expected YYYY-MM-DD", ErrInvalidDeadline, s)
	}
	return Deadline{date: t, valid: true}, nil
}

// IsSet は期限が設定されているかを返します。
func (d Deadline) IsSet() bool { return d.valid }

// Time は期限の日付 (UTC 0時) を返します。期限なしの場合はゼロ値です。
func (d Deadline) Time() time.Time { return d.date }

// String は "YYYY-MM-DD" を返します。期限なしの場合は空文字列です。
func (d Deadline) String() string {
	if !d.valid {
		return ""
	}
	return d.date.Format(DeadlineLayout)
}

// Compare は期限の昇順での比較結果を返します。
// 期限なしは常に期限ありより後ろに並びます。
func (d Deadline) Compare(o Deadline) int {
	switch {
	case d.valid && o.valid:
		return d.date.Compare(o.date)
	case d.valid:
		return -1
	case o.valid:
		return 1
	default:
		return 0
	}
}

// MarshalJSON は期限なしを null、それ以外を "YYYY-MM-DD" にします。
func (d Deadline) MarshalJSON() ([]byte, error) {
	if !d.valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON は null / "" / "YYYY-MM-DD" を受け付けます。
func (d *Deadline) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Deadline{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDeadline, err)
	}
	parsed, err := ParseDeadline(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalYAML は yaml.v3 向けに文字列で出力します。
func (d Deadline) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// Scan は DATE カラムを読み込みます (database/sql.Scanner)。
// MySQL(parseTime=true) と go-sqlite3 は time.Time、それ以外は文字列で返してきます。
func (d *Deadline) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Deadline{}
		return nil
	case time.Time:
		*d = NewDeadline(v.Year(), v.Month(), v.Day())
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into Deadline", src)
	}
}

func (d *Deadline) scanString(s string) error {
	// "2024-01-01 00:00:00" のような DATETIME 形式も先頭10文字で読む
	if len(s) > len(DeadlineLayout) {
		s = s[:len(DeadlineLayout)]
	}
	parsed, err := ParseDeadline(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value は DATE カラムへの書き込み値を返します (driver.Valuer)。
func (d Deadline) Value() (driver.Value, error) {
	if !d.valid {
		return nil, nil
	}
	return d.String(), nil
}

// TodoItem は ToDo ドキュメントです。
// ID はストアが採番し、OwnerName は作成後に変更されません。
type TodoItem struct {
	ID          string    `json:"id" yaml:"id"`
	OwnerName   string    `json:"owner_name" yaml:"owner_name"`
	DisplayText string    `json:"display_text" yaml:"display_text"`
	Completed   bool      `json:"completed" yaml:"completed"`
	Deadline    Deadline  `json:"deadline" yaml:"deadline"`
	CreatedAt   time.Time `json:"created_at,omitempty" yaml:"-"`
	UpdatedAt   time.Time `json:"updated_at,omitempty" yaml:"-"`
}

// TodoCreateRequest は作成リクエストのボディです。ID と日時はサーバーが決めます。
type TodoCreateRequest struct {
	OwnerName   string   `json:"owner_name,omitempty"`
	DisplayText string   `json:"display_text"`
	Completed   bool     `json:"completed"`
	Deadline    Deadline `json:"deadline"`
}

// Item は作成リクエストを TodoItem にします。
func (r TodoCreateRequest) Item() TodoItem {
	return TodoItem{OwnerName: r.OwnerName, DisplayText: r.DisplayText, Completed: r.Completed, Deadline: r.Deadline}
}

// TodoPatch は部分更新の内容です。nil のフィールドは変更しません。
// 所有者 (owner_name) は更新できません。
type TodoPatch struct {
	Completed   *bool     `json:"completed,omitempty"`
	DisplayText *string   `json:"display_text,omitempty"`
	Deadline    *Deadline `json:"deadline,omitempty"`
}

// IsEmpty は変更内容が何もないかを返します。
func (p TodoPatch) IsEmpty() bool {
	return p.Completed == nil && p.DisplayText == nil && p.Deadline == nil
}

// ComposeDisplayText は表示用テキスト「期限 : 内容」を組み立てます。
// 期限なしでも区切り文字は残します。
func ComposeDisplayText(deadline Deadline, text string) string {
	return deadline.String() + " : " + text
}

// SortByDeadline は期限の昇順に安定ソートします (期限なしは末尾)。
func SortByDeadline(items []TodoItem) {
	slices.SortStableFunc(items, func(a, b TodoItem) int {
		return a.Deadline.Compare(b.Deadline)
	})
}
