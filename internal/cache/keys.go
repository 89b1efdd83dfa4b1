package cache

import (
	"fmt"
	"time"
)

const (
	UserKeyPrefix      = "user:%d"
	ActiveKeyPrefix    = "user:%d:active"
	BlacklistKeyPrefix = "blacklist:%s"
	ViewKeyPrefix      = "service:%d:viewed:%s"
)

const (
	UserTTL   = 5 * time.Minute
	ActiveTTL = time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

// ActiveKey throttles last-active writes for a user.
func ActiveKey(userID uint) string {
	return fmt.Sprintf(ActiveKeyPrefix, userID)
}

// BlacklistKey marks a revoked token by its jti.
func BlacklistKey(jti string) string {
	return fmt.Sprintf(BlacklistKeyPrefix, jti)
}

func ViewKey(serviceID uint, session string) string {
	return fmt.Sprintf(ViewKeyPrefix, serviceID, session)
}
