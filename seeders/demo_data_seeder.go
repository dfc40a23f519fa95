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

// seedDemoData создает два департамента с руководителями, сотрудника и
// дерево задач. Все вставки идут в одной транзакции, чтобы не оставить
// департамент без руководителя при сбое на полпути.
func seedDemoData(ctx context.Context, db *pgxpool.Pool) error {
	var existing uint64
	err := db.QueryRow(ctx, "SELECT id FROM departments WHERE name = 'Финансовый департамент'").Scan(&existing)
	if err == nil {
		log.Println("  - Демо-данные уже загружены. Пропускаем.")
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("ошибка при проверке демо-данных: %w", err)
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("не удалось начать транзакцию: %w", err)
	}
	defer tx.Rollback(ctx)

	password, err := utils.HashPassword("demo12345")
	if err != nil {
		return err
	}

	createUser := func(fio, email, role string) (uint64, error) {
		var id uint64
		err := tx.QueryRow(ctx,
			`INSERT INTO users (fio, email, password, role) VALUES ($1, $2, $3, $4) RETURNING id`,
			fio, email, password, role).Scan(&id)
		return id, err
	}
	createDepartment := func(name string, managerID uint64) (uint64, error) {
		var id uint64
		err := tx.QueryRow(ctx,
			`INSERT INTO departments (name, manager_id) VALUES ($1, $2) RETURNING id`,
			name, managerID).Scan(&id)
		return id, err
	}

	financeManager, err := createUser("Рахимов Фаррух", "f.rakhimov@task-tracker.local", constants.RoleManager)
	if err != nil {
		return err
	}
	itManager, err := createUser("Каримова Нилуфар", "n.karimova@task-tracker.local", constants.RoleManager)
	if err != nil {
		return err
	}

	financeDept, err := createDepartment("Финансовый департамент", financeManager)
	if err != nil {
		return err
	}
	itDept, err := createDepartment("Департамент ИТ", itManager)
	if err != nil {
		return err
	}

	// Руководители числятся в своих же департаментах.
	if _, err := tx.Exec(ctx, `UPDATE users SET department_id = $1 WHERE id = $2`, financeDept, financeManager); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE users SET department_id = $1 WHERE id = $2`, itDept, itManager); err != nil {
		return err
	}

	employee, err := createUser("Шарипов Далер", "d.sharipov@task-tracker.local", constants.RoleEmployee)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE users SET department_id = $1 WHERE id = $2`, itDept, employee); err != nil {
		return err
	}

	var parentTask uint64
	err = tx.QueryRow(ctx,
		`INSERT INTO tasks (title, description, status, priority, created_by_id, department_id)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		"Миграция на новую CRM", "Перенос клиентской базы и интеграций", constants.TaskStatusTodo,
		constants.TaskPriorityHigh, itManager, itDept).Scan(&parentTask)
	if err != nil {
		return err
	}
	subtasks := []struct {
		title  string
		status string
	}{
		{"Выгрузить данные из старой системы", constants.TaskStatusCompleted},
		{"Настроить интеграцию с бухгалтерией", constants.TaskStatusInProgress},
		{"Обучить сотрудников", constants.TaskStatusTodo},
	}
	for _, st := range subtasks {
		_, err := tx.Exec(ctx,
			`INSERT INTO tasks (title, status, priority, created_by_id, department_id, parent_id)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			st.title, st.status, constants.TaskPriorityMedium, employee, itDept, parentTask)
		if err != nil {
			return err
		}
	}
	// Часть подзадач завершена, родитель отражает это сразу.
	if _, err := tx.Exec(ctx, `UPDATE tasks SET status = $1 WHERE id = $2`, constants.TaskStatusInProgress, parentTask); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка при коммите демо-данных: %w", err)
	}
	log.Println("  - Демо-данные созданы.")
	return nil
}
