package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"leadhub-data/internal/config"
	"leadhub-data/internal/database"
)

// 按文件名顺序执行 migrations/*.sql（开发辅助工具，非生产迁移框架）
func main() {
	dir := "migrations"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil || len(files) == 0 {
		log.Fatalf("No migration files found in %s", dir)
	}
	sort.Strings(files)

	cfg := config.Load()
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer db.Close()

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			log.Fatalf("Failed to read %s: %v", file, err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			log.Fatalf("Failed to apply %s: %v", file, err)
		}
		fmt.Printf("Applied %s\n", file)
	}
	fmt.Println("All migrations applied")
}
