package log

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// toFields converts logr-style arguments into zap fields. A bare error or
// zap.Field stands alone; anything else pairs a string key with the next
// value. A trailing value without a key is kept as "arg#N".
func toFields(args ...any) []zap.Field {
	if len(args) == 0 {
		return nil
	}

	fields := make([]zap.Field, 0, len(args)/2+1)
	for i := 0; i < len(args); i++ {
		switch v := args[i].(type) {
		case zap.Field:
			fields = append(fields, v)
			continue
		case error:
			fields = append(fields, zap.Error(v))
			continue
		}

		if i == len(args)-1 {
			fields = append(fields, zap.Any(fmt.Sprintf("arg#%d", i), args[i]))
			break
		}

		key, ok := args[i].(string)
		if !ok {
			fields = append(fields, zap.Any(fmt.Sprintf("invalid_key_%d", i/2+1), map[string]any{
				"key":   args[i],
				"value": args[i+1],
			}))
		} else {
			fields = append(fields, field(key, args[i+1]))
		}
		i++
	}
	return fields
}

// field picks a typed constructor where zap.Any would fall back to reflection.
func field(key string, val any) zap.Field {
	switch v := val.(type) {
	case time.Duration, time.Time:
		return zap.Any(key, v)
	case error:
		return zap.NamedError(key, v)
	case fmt.Stringer:
		return zap.Stringer(key, v)
	case []byte:
		return zap.ByteString(key, v)
	}
	return zap.Any(key, val)
}
