package pkg

import (
	"testing"

	"github.com/SAP-F-2025/login-approval-service/internal/config"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{"adds disable", config.Config{DatabaseURL: "postgres://u:p@db:5432/app"}, "postgres://u:p@db:5432/app?sslmode=disable"},
		{"adds require", config.Config{DatabaseURL: "postgres://u:p@db:5432/app", DBSSL: true}, "postgres://u:p@db:5432/app?sslmode=require"},
		{"keeps explicit", config.Config{DatabaseURL: "postgres://db/app?sslmode=verify-full"}, "postgres://db/app?sslmode=verify-full"},
		{"key value form untouched", config.Config{DatabaseURL: "host=db dbname=app"}, "host=db dbname=app"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dsn(&tt.cfg); got != tt.want {
				t.Errorf("dsn() = %s, want %s", got, tt.want)
			}
		})
	}
}
