package generate

import (
	"context"
	"strings"

	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"
)

const suggestionLimit = 4

const suggestionSystemPrompt = `You are a helpful assistant that suggests famous PEOPLE/PERSONALITIES ONLY based on user input. NEVER suggest places, things, objects, or locations. The person's FIRST NAME or LAST NAME must START EXACTLY with the given letters (case-insensitive). Return 4 names total, including celebrities, historical figures, scientists, artists, athletes, and leaders. Return ONLY the person's name as a simple list, one per line, without numbers, bullets, or descriptions.`

// Suggester completes partial search queries into famous-person name
// suggestions. Failures and missing configuration degrade to a static prefix
// table, so Suggest never errors.
type Suggester struct {
	model llmsdk.LanguageModel
}

// NewSuggester wraps the given language model; a nil model always serves the
// static fallback table.
func NewSuggester(model llmsdk.LanguageModel) *Suggester {
	return &Suggester{model: model}
}

// Suggest returns up to four name suggestions for the query prefix. An empty
// query yields no suggestions.
func (s *Suggester) Suggest(ctx context.Context, query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	if s.model == nil {
		return fallbackSuggestions(query)
	}
	system := suggestionSystemPrompt
	temperature := 0.7
	maxTokens := uint32(150)
	resp, err := s.model.Generate(ctx, &llmsdk.LanguageModelInput{
		SystemPrompt: &system,
		Messages: []llmsdk.Message{
			llmsdk.NewUserMessage(llmsdk.NewTextPart(
				`Suggest 4 famous PEOPLE whose FIRST NAME or LAST NAME STARTS with: "` + query + `".`)),
		},
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return fallbackSuggestions(query)
	}
	suggestions := parseSuggestionLines(joinTextParts(resp))
	if len(suggestions) == 0 {
		return fallbackSuggestions(query)
	}
	return suggestions
}

func parseSuggestionLines(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == suggestionLimit {
			break
		}
	}
	return out
}

// Static table served when the model is unconfigured or failing. Keyed by
// query prefix, longest match first.
var fallbackTable = map[string][]string{
	"a":  {"Amitabh Bachchan", "Aamir Khan", "A.R. Rahman", "Albert Einstein"},
	"s":  {"Sachin Tendulkar", "Shah Rukh Khan", "Salman Khan", "Steve Jobs"},
	"m":  {"M.S. Dhoni", "Mahatma Gandhi", "Mukesh Ambani", "Michael Jackson"},
	"r":  {"Ratan Tata", "Rajinikanth", "Ranbir Kapoor", "Robert Downey Jr."},
	"v":  {"Virat Kohli", "Vivekananda", "Vishwanathan Anand", "Vincent van Gogh"},
	"p":  {"P.V. Sindhu", "Priyanka Chopra", "Prabhas", "Pablo Picasso"},
	"n":  {"Narendra Modi", "Neeraj Chopra", "Nita Ambani", "Nelson Mandela"},
	"d":  {"Deepika Padukone", "Dharmendra", "Dhanush", "David Bowie"},
	"k":  {"Kalpana Chawla", "Kapil Dev", "Karan Johar", "Kobe Bryant"},
	"h":  {"Hema Malini", "Harbhajan Singh", "Hrithik Roshan", "Halle Berry"},
	"sa": {"Sachin Tendulkar", "Salman Khan", "Satyajit Ray", "Samuel L. Jackson"},
	"sh": {"Shah Rukh Khan", "Shahid Kapoor", "Shilpa Shetty", "Shakira"},
	"vi": {"Virat Kohli", "Vijay Deverakonda", "Vidya Balan", "Vincent van Gogh"},
	"am": {"Amitabh Bachchan", "Aamir Khan", "Amir Khan", "Amy Winehouse"},
	"ra": {"Ratan Tata", "Rajinikanth", "Ranveer Singh", "Rafael Nadal"},
	"pr": {"Priyanka Chopra", "Prabhas", "Prakash Raj", "Prince"},
	"ma": {"Mahatma Gandhi", "Mary Kom", "Mahendra Singh Dhoni", "Madonna"},
	"de": {"Deepika Padukone", "Dev Anand", "Devi Sri Prasad", "Denzel Washington"},
	"ka": {"Kapil Dev", "Kareena Kapoor", "Kajol", "Kate Winslet"},
	"an": {"Anushka Sharma", "Anil Kapoor", "Anurag Kashyap", "Angelina Jolie"},
}

func fallbackSuggestions(query string) []string {
	q := strings.ToLower(query)
	if names, ok := fallbackTable[q]; ok {
		return names
	}
	for prefix, names := range fallbackTable {
		if strings.HasPrefix(q, prefix) && len(prefix) > 1 {
			return names
		}
	}
	if len(q) > 0 {
		if names, ok := fallbackTable[q[:1]]; ok {
			return names
		}
	}
	return []string{"Mahatma Gandhi", "Sachin Tendulkar", "A.R. Rahman", "Steve Jobs"}
}
