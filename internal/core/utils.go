package core

import "github.com/google/uuid"

// generateID 生成随机 ID
func generateID() string {
	return uuid.NewString()
}
