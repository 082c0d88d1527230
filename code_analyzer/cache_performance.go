package code_analyzer

import (
	"time"
)

// recordReuse counts a file node carried over verbatim from the previous tree
func (cm *CacheManager) recordReuse() {
	if cm == nil || cm.stats == nil {
		return
	}
	cm.stats.mutex.Lock()
	defer cm.stats.mutex.Unlock()
	cm.stats.Reused++
}

// recordClone counts a file node carried over with a corrected hash
func (cm *CacheManager) recordClone() {
	if cm == nil || cm.stats == nil {
		return
	}
	cm.stats.mutex.Lock()
	defer cm.stats.mutex.Unlock()
	cm.stats.Cloned++
}

// recordParse counts a file whose structure was extracted again
func (cm *CacheManager) recordParse() {
	if cm == nil || cm.stats == nil {
		return
	}
	cm.stats.mutex.Lock()
	defer cm.stats.mutex.Unlock()
	cm.stats.Parsed++
}

// recordHashOnly counts a file tracked by hash without a structure node
func (cm *CacheManager) recordHashOnly() {
	if cm == nil || cm.stats == nil {
		return
	}
	cm.stats.mutex.Lock()
	defer cm.stats.mutex.Unlock()
	cm.stats.HashOnly++
}

func (cm *CacheManager) resetStats() {
	if cm.stats == nil {
		return
	}
	cm.stats.mutex.Lock()
	defer cm.stats.mutex.Unlock()
	cm.stats.Reused = 0
	cm.stats.Cloned = 0
	cm.stats.Parsed = 0
	cm.stats.HashOnly = 0
	cm.stats.LastResetTime = time.Now()
}

// GetPerformanceStats returns reuse-versus-reparse statistics since the last reset
func (cm *CacheManager) GetPerformanceStats() map[string]interface{} {
	if cm.stats == nil {
		return map[string]interface{}{
			"reused":       int64(0),
			"cloned":       int64(0),
			"parsed":       int64(0),
			"hash_only":    int64(0),
			"reuse_rate":   0.0,
			"uptime_human": "0s",
		}
	}

	cm.stats.mutex.RLock()
	defer cm.stats.mutex.RUnlock()

	carried := cm.stats.Reused + cm.stats.Cloned
	total := carried + cm.stats.Parsed
	reuseRate := 0.0
	if total > 0 {
		reuseRate = float64(carried) / float64(total) * 100
	}

	return map[string]interface{}{
		"reused":       cm.stats.Reused,
		"cloned":       cm.stats.Cloned,
		"parsed":       cm.stats.Parsed,
		"hash_only":    cm.stats.HashOnly,
		"reuse_rate":   reuseRate,
		"uptime_human": time.Since(cm.stats.LastResetTime).Round(time.Second).String(),
	}
}
