package main

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/casualjim/omnichat/tool"
	"github.com/goccy/go-json"
)

type weatherArgs struct {
	City string `json:"city"`
	Unit string `json:"unit"`
}

func currentTime(ctx context.Context, timezone string) (string, error) {
	loc := time.Local
	if timezone != "" {
		var err error
		if loc, err = time.LoadLocation(timezone); err != nil {
			return "", err
		}
	}
	return time.Now().In(loc).Format(time.RFC1123), nil
}

// weather makes up a stable reading per city so the demo works offline.
func weather(_ context.Context, raw json.RawMessage) (string, error) {
	var args weatherArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", err
	}
	if args.City == "" {
		return "", fmt.Errorf("city is required")
	}
	h := fnv.New32a()
	h.Write([]byte(args.City))
	temp := float64(h.Sum32()%35) - 5
	unit := "C"
	if args.Unit == "f" {
		temp, unit = temp*9/5+32, "F"
	}
	return fmt.Sprintf("%.0f°%s and clear in %s", temp, unit, args.City), nil
}

func demoTools() *tool.Registry {
	return tool.NewRegistry(
		tool.Must(currentTime,
			tool.Name("current_time"),
			tool.Description("The current date and time, optionally in an IANA timezone"),
			tool.Parameters("timezone"),
		),
		tool.MustExplicit("get_weather", "Current weather for a city",
			tool.Object(
				tool.Required("city", tool.String("City name")),
				tool.Optional("unit", tool.Enum("Temperature unit", "c", "f")),
			),
			weather,
		),
	)
}
