package contextkeys

// Используем кастомный тип, чтобы избежать коллизий с другими пакетами
type contextKey string

// DBContextKey - ключ, по которому DBMiddleware кладет *gorm.DB в context
const DBContextKey = contextKey("db")
