package layout

import (
	"encoding/json"
	"os"
)

// WriteDebugJSON 将排版后的卡牌输出为 JSON，便于调试或可视化。
func WriteDebugJSON(cards []*Card, path string) error {
	if len(cards) == 0 {
		return nil
	}
	data, err := json.MarshalIndent(cards, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
