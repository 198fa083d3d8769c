package sheets

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kodjooo/content-from-rss/internal/models"
)

var boldPattern = regexp.MustCompile(`\*\*(.+?)\*\*`)

// telegraphContent builds the JSON node list the Telegra.ph createPage API
// expects for the full post body, converting **bold** spans to strong tags
// and closing with a source link paragraph.
func telegraphContent(record models.PublicationRecord) string {
	body := strings.TrimSpace(record.Post.Formatted())

	var nodes []map[string]interface{}
	for _, paragraph := range strings.Split(body, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		nodes = append(nodes, map[string]interface{}{
			"tag":      "p",
			"children": paragraphChildren(paragraph),
		})
	}
	nodes = append(nodes, map[string]interface{}{
		"tag": "p",
		"children": []interface{}{
			map[string]interface{}{
				"tag":      "a",
				"attrs":    map[string]string{"href": record.Link},
				"children": []interface{}{"Источник >"},
			},
		},
	})

	data, err := json.Marshal(nodes)
	if err != nil {
		return ""
	}
	return string(data)
}

// paragraphChildren splits a paragraph into text and strong nodes.
func paragraphChildren(paragraph string) []interface{} {
	var children []interface{}
	last := 0
	for _, span := range boldPattern.FindAllStringSubmatchIndex(paragraph, -1) {
		start, end := span[0], span[1]
		if start > last {
			children = append(children, paragraph[last:start])
		}
		if bold := strings.TrimSpace(paragraph[span[2]:span[3]]); bold != "" {
			children = append(children, map[string]interface{}{
				"tag":      "strong",
				"children": []interface{}{bold},
			})
		}
		last = end
	}
	if last < len(paragraph) {
		children = append(children, paragraph[last:])
	}
	if len(children) == 0 {
		children = append(children, "")
	}
	return children
}
