package manager

import (
	"database/sql"
	"time"

	"go.uber.org/zap"

	"release-portal/pkg/protocol"
)

// LogManager 管理员操作审计
type LogManager struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewLogManager(db *sql.DB, logger *zap.Logger) *LogManager {
	return &LogManager{db: db, logger: logger}
}

// RecordLog 异步写入，不阻塞请求
func (lm *LogManager) RecordLog(operator, action, targetType, targetName, detail, status string) {
	go func() {
		query := `INSERT INTO sys_op_logs (operator, action, target_type, target_name, detail, status, create_time) VALUES (?, ?, ?, ?, ?, ?, ?)`
		if _, err := lm.db.Exec(query, operator, action, targetType, targetName, detail, status, time.Now().Unix()); err != nil {
			lm.logger.Warn("record op log failed", zap.String("action", action), zap.Error(err))
		}
	}()
}

func (lm *LogManager) GetLogs(page, pageSize int, keyword string) (*protocol.LogQueryResp, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize
	resp := &protocol.LogQueryResp{List: []*protocol.OpLog{}}

	// 1. 查总数
	countQuery := `SELECT COUNT(*) FROM sys_op_logs`
	var args []interface{}

	if keyword != "" {
		countQuery += ` WHERE action LIKE ? OR target_name LIKE ? OR operator LIKE ?`
		pattern := "%" + keyword + "%"
		args = append(args, pattern, pattern, pattern)
	}

	err := lm.db.QueryRow(countQuery, args...).Scan(&resp.Total)
	if err != nil {
		return nil, err
	}

	// 2. 查列表
	listQuery := `SELECT id, operator, action, target_type, target_name, detail, status, create_time 
				  FROM sys_op_logs`
	if keyword != "" {
		listQuery += ` WHERE action LIKE ? OR target_name LIKE ? OR operator LIKE ?`
	}
	listQuery += ` ORDER BY create_time DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, pageSize, offset)

	rows, err := lm.db.Query(listQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var l protocol.OpLog
		if err := rows.Scan(&l.ID, &l.Operator, &l.Action, &l.TargetType, &l.TargetName, &l.Detail, &l.Status, &l.CreateTime); err != nil {
			return nil, err
		}
		resp.List = append(resp.List, &l)
	}

	return resp, rows.Err()
}
