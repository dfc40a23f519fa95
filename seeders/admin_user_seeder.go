package seeders

import (
	"context"
	"errors"
	"fmt"
	"log"

	"task-tracker/pkg/constants"
	"task-tracker/pkg/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func seedAdminUser(ctx context.Context, db *pgxpool.Pool) error {
	log.Println("  - Создание пользователя 'Администратор'...")

	email := "admin@task-tracker.local"
	var userID uint64
	err := db.QueryRow(ctx, "SELECT id FROM users WHERE email = $1", email).Scan(&userID)
	if err == nil {
		log.Println("    - Администратор уже существует. Пропускаем.")
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("ошибка при проверке существования администратора: %w", err)
	}

	hashedPassword, err := utils.HashPassword("admin12345")
	if err != nil {
		return err
	}

	query := `INSERT INTO users (fio, email, password, role) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := db.QueryRow(ctx, query, "Администратор системы", email, hashedPassword, constants.RoleAdmin).Scan(&userID); err != nil {
		return fmt.Errorf("ошибка при создании администратора: %w", err)
	}

	log.Printf("    - Администратор создан (id=%d, пароль по умолчанию нужно сменить).", userID)
	return nil
}
