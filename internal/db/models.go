package db

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"
)

// Leaf is the JSON encoding of one scalar, stored in a plain text column.
//
// SQLite applies numeric affinity to JSON columns, so a leaf like 31 comes
// back from the driver as int64 rather than bytes. Scan accepts every form a
// driver may hand back and normalizes it to the JSON text.
type Leaf []byte

// GormDataType maps the column to "text" on every dialect.
func (Leaf) GormDataType() string { return "text" }

// Value implements driver.Valuer.
func (l Leaf) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return string(l), nil
}

// Scan implements sql.Scanner.
func (l *Leaf) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = nil
	case []byte:
		*l = append(Leaf(nil), v...)
	case string:
		*l = Leaf(v)
	case int64:
		*l = Leaf(strconv.FormatInt(v, 10))
	case float64:
		*l = Leaf(strconv.FormatFloat(v, 'g', -1, 64))
	case bool:
		*l = Leaf(strconv.FormatBool(v))
	default:
		return fmt.Errorf("leaf: unsupported column type %T", src)
	}
	return nil
}

// Node is one leaf of the realtime tree.
//
// Every scalar (string, number, bool) of the tree is stored as its own row,
// keyed by its full slash-separated path. Objects and arrays are never stored;
// they are rebuilt from the rows sharing a path prefix.
//
// Invariants:
//   - No row is a path-ancestor of another row (a leaf has no children).
//   - Path is compared byte-wise (binary collation on MySQL).
//
// Fields:
//   - Path: e.g. "user_chats/u1/u1_u2/unreadCount".
//   - Value: JSON encoding of the scalar.
//   - UpdatedAt: last write time.
type Node struct {
	Path      string    `gorm:"primaryKey;size:512"`
	Value     Leaf      `gorm:"not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName keeps the table name stable across naming strategies.
func (Node) TableName() string { return "tree_nodes" }
