package database

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ColumnInfo matches the output of SHOW COLUMNS.
type ColumnInfo struct {
	Field   string
	Type    string
	Null    string
	Key     string
	Default *string // NULL default is possible
	Extra   string
}

// GetTableColumns retrieves the column definitions for a given table.
func GetTableColumns(db *gorm.DB, tableName string) ([]ColumnInfo, error) {
	var columns []ColumnInfo
	if db.Dialector.Name() == "sqlite" {
		type sqliteColumn struct {
			Cid        int
			Name       string
			Type       string
			Notnull    int
			DefaultVal *string
			Pk         int
		}
		var sqliteCols []sqliteColumn
		if err := db.Raw(fmt.Sprintf("PRAGMA table_info('%s')", tableName)).Scan(&sqliteCols).Error; err != nil {
			return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
		}
		for _, col := range sqliteCols {
			columns = append(columns, ColumnInfo{
				Field: strings.ToLower(col.Name),
				Type:  strings.ToLower(col.Type),
			})
		}
		return columns, nil
	}

	err := db.Raw(fmt.Sprintf("SHOW COLUMNS FROM `%s`", tableName)).Scan(&columns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
	}
	for i := range columns {
		columns[i].Type = strings.ToLower(columns[i].Type)
		columns[i].Field = strings.ToLower(columns[i].Field)
	}
	return columns, nil
}

// MissingColumns reports, per table, the required columns that are absent.
// A table that does not exist reports all of its required columns.
func MissingColumns(db *gorm.DB, required map[string][]string) (map[string][]string, error) {
	missing := make(map[string][]string)
	for table, want := range required {
		cols, err := GetTableColumns(db, table)
		if err != nil {
			// MySQL errors on unknown tables where sqlite returns nothing.
			if !db.Migrator().HasTable(table) {
				missing[table] = append([]string(nil), want...)
				continue
			}
			return nil, err
		}
		have := make(map[string]struct{}, len(cols))
		for _, c := range cols {
			have[c.Field] = struct{}{}
		}
		for _, w := range want {
			if _, ok := have[strings.ToLower(w)]; !ok {
				missing[table] = append(missing[table], w)
			}
		}
	}
	return missing, nil
}
