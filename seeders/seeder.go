package seeders

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SeedAdmin создает начального администратора, если его еще нет.
func SeedAdmin(db *pgxpool.Pool) {
	ctx := context.Background()
	log.Println("▶️  Запуск создания администратора...")

	if err := seedAdminUser(ctx, db); err != nil {
		log.Fatalf("❌ Ошибка создания администратора: %v", err)
	}
	log.Println("✅ Администратор готов!")
}

// SeedDemoData наполняет БД демонстрационными департаментами,
// пользователями и задачами. Повторный запуск ничего не дублирует.
func SeedDemoData(db *pgxpool.Pool) {
	ctx := context.Background()
	log.Println("▶️  Запуск наполнения демо-данными...")

	if err := seedDemoData(ctx, db); err != nil {
		log.Fatalf("❌ Ошибка наполнения демо-данными: %v", err)
	}
	log.Println("✅ Демо-данные готовы!")
}
