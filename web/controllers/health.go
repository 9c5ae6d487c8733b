package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

const healthPingTimeout = 3 * time.Second

func (ctl *Controller) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
	defer cancel()

	status := http.StatusOK
	dbState := "up"
	if err := ctl.db.Ping(ctx); err != nil {
		ctl.log.Warn("health: database ping failed", zap.Error(err))
		status = http.StatusServiceUnavailable
		dbState = "down"
	}

	info := gin.H{"database": dbState}
	if memInfo, err := mem.VirtualMemory(); err == nil {
		info["memory_total"] = memInfo.Total
		info["memory_used"] = memInfo.Used
		info["memory_used_percent"] = memInfo.UsedPercent
	}
	// interval 0 compares against the previous call instead of sleeping
	if cpuUsage, err := cpu.Percent(0, false); err == nil && len(cpuUsage) > 0 {
		info["cpu_usage"] = cpuUsage[0]
	}

	c.JSON(status, info)
}
