package exam

import (
	"math/rand/v2"

	"github.com/pavelanni/assessor/internal/model"
)

// Shuffle permutes options uniformly at random and returns the question body
// with the correct letter pointing at the option that was at index correct.
func Shuffle(options [4]string, correct int) model.MultipleChoice {
	if correct < 0 || correct >= len(options) {
		correct = 0
	}
	want := options[correct]

	shuffled := options
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	mc := model.MultipleChoice{Options: shuffled, Correct: model.LetterA}
	for i, opt := range shuffled {
		if opt == want {
			mc.Correct = model.Letters[i]
			break
		}
	}
	return mc
}
