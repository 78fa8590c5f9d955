package main

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"patient-caller-backend/internal/client"
)

type commandContext struct {
	serverFlag   *string
	timezoneFlag *string

	locOnce sync.Once
	loc     *time.Location
	locErr  error
}

func newCommandContext(serverFlag, timezoneFlag *string) *commandContext {
	return &commandContext{
		serverFlag:   serverFlag,
		timezoneFlag: timezoneFlag,
	}
}

func (c *commandContext) client() *client.Client {
	var server string
	if c.serverFlag != nil {
		server = strings.TrimSpace(*c.serverFlag)
	}
	return client.New(server)
}

func (c *commandContext) location() (*time.Location, error) {
	c.locOnce.Do(func() {
		name := "Local"
		if c.timezoneFlag != nil && strings.TrimSpace(*c.timezoneFlag) != "" {
			name = strings.TrimSpace(*c.timezoneFlag)
		}
		c.loc, c.locErr = time.LoadLocation(name)
		if c.locErr != nil {
			c.locErr = fmt.Errorf("invalid --timezone %q: %w", name, c.locErr)
		}
	})
	return c.loc, c.locErr
}

func parsePatientID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid patient id %q", raw)
	}
	return id, nil
}
