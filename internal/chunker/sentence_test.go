package chunker_test

import (
	"testing"

	"github.com/m-mizutani/gt"

	"safetyrag/internal/chunker"
)

func TestSentences(t *testing.T) {
	testCases := map[string]struct {
		text string
		want []string
	}{
		"terminated": {
			text: "분전반을 점검하였다. 센서를 교체하던 중 감전되었다!",
			want: []string{"분전반을 점검하였다.", "센서를 교체하던 중 감전되었다!"},
		},
		"trailing fragment": {
			text: "맨홀에 들어감. 산소결핍으로 쓰러짐",
			want: []string{"맨홀에 들어감.", "산소결핍으로 쓰러짐"},
		},
		"repeated punctuation": {
			text: "정말?! 네...  ",
			want: []string{"정말?!", "네..."},
		},
		"blank": {
			text: "   ",
			want: []string{},
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			gt.Value(t, chunker.Sentences(tc.text)).Equal(tc.want)
		})
	}
}
