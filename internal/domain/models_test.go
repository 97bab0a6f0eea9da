package domain

import (
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// One connection so the PRAGMA below applies to every statement.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	// Enforce FKs so cascades actually execute.
	db.Exec("PRAGMA foreign_keys=ON;")
	return db
}

func TestTableNames(t *testing.T) {
	if (Inquiry{}).TableName() != "inquiries" {
		t.Fatalf("Inquiry.TableName() = %q; want %q", (Inquiry{}).TableName(), "inquiries")
	}
	if (ApplicationUser{}).TableName() != "users" {
		t.Fatalf("ApplicationUser.TableName() = %q; want %q", (ApplicationUser{}).TableName(), "users")
	}
	if (Idempotency{}).TableName() != "idempotency" {
		t.Fatalf("Idempotency.TableName() = %q; want %q", (Idempotency{}).TableName(), "idempotency")
	}
}

func TestMigrations_Indexes_Defaults_AndCascade(t *testing.T) {
	db := newDomainDB(t)

	if err := db.AutoMigrate(&ApplicationUser{}, &Inquiry{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()
	for _, tbl := range []any{&ApplicationUser{}, &Inquiry{}} {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}
	if !m.HasIndex(&Inquiry{}, "idx_user_inquiries") {
		t.Fatalf("expected index idx_user_inquiries on inquiries")
	}

	now := time.Now().UTC()
	u := &ApplicationUser{ID: "11111111-1111-1111-1111-111111111111", FirstName: "Ada", LastName: "Lovelace", CreatedAt: now}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("insert user: %v", err)
	}

	// Version falls back to its column default when omitted.
	if err := db.Exec(`INSERT INTO inquiries (id, question, response, user_id, created_at, updated_at) VALUES (?,?,?,?,?,?)`,
		"i1", "Q1", "", u.ID, now, now).Error; err != nil {
		t.Fatalf("insert inquiry: %v", err)
	}
	var got Inquiry
	if err := db.First(&got, "id = ?", "i1").Error; err != nil {
		t.Fatalf("readback: %v", err)
	}
	if got.Version != 1 || got.UserID != u.ID {
		t.Fatalf("unexpected defaults: %+v", got)
	}

	// Orphans are rejected by the FK.
	orphan := &Inquiry{ID: "i2", Question: "Q", UserID: "22222222-2222-2222-2222-222222222222"}
	if err := db.Omit("User").Create(orphan).Error; err == nil {
		t.Fatalf("expected FK violation for unknown owner")
	}

	// CASCADE: deleting the user removes their inquiries.
	if err := db.Delete(&ApplicationUser{}, "id = ?", u.ID).Error; err != nil {
		t.Fatalf("delete user: %v", err)
	}
	var cnt int64
	if err := db.Model(&Inquiry{}).Where("user_id = ?", u.ID).Count(&cnt).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if cnt != 0 {
		t.Fatalf("expected inquiries to cascade-delete with their owner, got %d", cnt)
	}
}

// MySQL rejects literal defaults on TEXT/BLOB columns, so text fields must
// not declare one.
func TestInquiry_TextColumnsHaveNoDefault(t *testing.T) {
	sch, err := schema.Parse(&Inquiry{}, &sync.Map{}, schema.NamingStrategy{})
	if err != nil {
		t.Fatalf("parse schema: %v", err)
	}
	for _, name := range []string{"Question", "Response"} {
		f := sch.LookUpField(name)
		if f == nil {
			t.Fatalf("field %s missing", name)
		}
		if f.HasDefaultValue || f.DefaultValue != "" {
			t.Fatalf("%s declares default %q", name, f.DefaultValue)
		}
	}
}
