package repository

import (
	"context"
	"strings"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/db"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NodeRepository provides data access methods for the Node model.
// It encapsulates all queries on the flattened realtime tree.
type NodeRepository struct {
	db *gorm.DB
}

// NewNodeRepository creates a new repository bound to the given DB connection.
func NewNodeRepository(database *gorm.DB) *NodeRepository {
	return &NodeRepository{db: database}
}

// Transaction runs fn inside a database transaction.
//
// Behavior:
//   - fn receives a repository bound to the transaction; using the outer
//     repository inside fn would escape the transaction.
//   - Any error returned by fn rolls the transaction back.
//
// Example:
//
//	repo.Transaction(ctx, func(tx *NodeRepository) error {
//	    rows, err := tx.LockSubtree(ctx, "user_chats/u2/u1_u2/unreadCount")
//	    ...
//	})
func (r *NodeRepository) Transaction(ctx context.Context, fn func(tx *NodeRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&NodeRepository{db: tx})
	})
}

// Subtree returns every leaf stored at path or below it, ordered by path.
//
// Behavior:
//   - Empty path selects the whole tree.
//   - "users/u1" matches "users/u1" and "users/u1/…" but never "users/u10".
//
// Example:
//
//	repo.Subtree(ctx, "likes/u2") // every inbox entry of u2
func (r *NodeRepository) Subtree(ctx context.Context, path string) ([]db.Node, error) {
	var nodes []db.Node
	err := r.subtreeQuery(ctx, path).Order("path ASC").Find(&nodes).Error
	return nodes, err
}

// LockSubtree is Subtree with the selected rows locked for update until the
// surrounding transaction ends. SQLite has no row locks; its single writer
// serializes transactions instead.
func (r *NodeRepository) LockSubtree(ctx context.Context, path string) ([]db.Node, error) {
	var nodes []db.Node
	query := r.subtreeQuery(ctx, path)
	if r.db.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := query.Order("path ASC").Find(&nodes).Error
	return nodes, err
}

// Exists reports whether anything is stored at path or below it.
func (r *NodeRepository) Exists(ctx context.Context, path string) (bool, error) {
	var count int64
	err := r.subtreeQuery(ctx, path).Limit(1).Count(&count).Error
	return count > 0, err
}

// DeleteSubtree removes every leaf stored at path or below it.
func (r *NodeRepository) DeleteSubtree(ctx context.Context, path string) error {
	query := r.db.WithContext(ctx)
	if path == "" {
		return query.Where("1 = 1").Delete(&db.Node{}).Error
	}
	return query.
		Where("path = ? OR path LIKE ? ESCAPE '!'", path, likePrefix(path)).
		Delete(&db.Node{}).Error
}

// DeletePaths removes the leaves stored exactly at the given paths.
// Used to drop scalar ancestors before writing below them.
func (r *NodeRepository) DeletePaths(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("path IN ?", paths).Delete(&db.Node{}).Error
}

// Upsert inserts or overwrites the given leaves.
//
// Behavior:
//   - If a row with the same path exists → value and updated_at are replaced.
//   - If it doesn't exist → a new row is inserted.
//
// Example:
//
//	repo.Upsert(ctx, []db.Node{{Path: "users/u1/likes/u2", Value: db.Leaf("true")}})
func (r *NodeRepository) Upsert(ctx context.Context, nodes []db.Node) error {
	if len(nodes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "path"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		CreateInBatches(&nodes, 200).Error
}

func (r *NodeRepository) subtreeQuery(ctx context.Context, path string) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&db.Node{})
	if path == "" {
		return query
	}
	return query.Where("path = ? OR path LIKE ? ESCAPE '!'", path, likePrefix(path))
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// likePrefix builds a LIKE pattern matching strict descendants of path.
func likePrefix(path string) string {
	return likeEscaper.Replace(path) + "/%"
}
