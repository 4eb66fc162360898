package compose

import (
	"fmt"
	"sort"
	"strings"

	"github.com/smart-trendz/trendz/internal/search"
	"github.com/smart-trendz/trendz/models"
)

// Composer turns snapshots, profiles and conversation state into prompts.
// All limits bound the prompt size before anything reaches the backend.
type Composer struct {
	ArticleLimit int // max articles offered to the curator
	PromptBudget int // max chars of rendered article context
	HistoryLimit int // max prior turns kept in a chat prompt
}

func NewComposer() *Composer {
	return &Composer{
		ArticleLimit: 20,
		PromptBudget: 12000,
		HistoryLimit: 6,
	}
}

// Tone maps a job title onto a writing style for generated content.
func Tone(jobTitle string) string {
	title := strings.ToLower(jobTitle)
	switch {
	case strings.Contains(title, "engineer") || strings.Contains(title, "developer"):
		return "technical and precise, with detailed explanations and code examples when relevant"
	case strings.Contains(title, "manager") || strings.Contains(title, "executive") || strings.Contains(title, "ceo"):
		return "strategic and business-focused, emphasizing impact and opportunities"
	case strings.Contains(title, "researcher") || strings.Contains(title, "scientist"):
		return "academic and thorough, with focus on methodologies and findings"
	case strings.Contains(title, "designer") || strings.Contains(title, "product"):
		return "user-focused and practical, emphasizing applications and experiences"
	default:
		return "friendly and conversational, balancing accessibility with depth"
	}
}

var recencyKeywords = []string{
	"latest", "recent", "newest", "current", "today",
	"this week", "breaking", "news", "what's new",
	"updates", "happening", "announcement", "released",
}

// NeedsWebSearch reports whether a chat message asks about recent events and
// should be grounded with a live web search.
func NeedsWebSearch(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range recencyKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Score counts profile tag and interest tokens appearing in the article's
// title or excerpt.
func Score(a models.ArticleRecord, profile models.UserProfile) int {
	haystack := strings.ToLower(a.Title + " " + a.Excerpt)
	score := 0
	for _, tag := range profile.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" && strings.Contains(haystack, tag) {
			score++
		}
	}
	for _, word := range strings.Fields(strings.ToLower(profile.Interests)) {
		word = strings.Trim(word, ",.;")
		if len(word) > 3 && strings.Contains(haystack, word) {
			score++
		}
	}
	return score
}

// SelectArticles orders articles by profile relevance and trims to the
// article limit and prompt budget. When the budget forces drops, the least
// relevant go first; among equally relevant articles the longer ones go
// first.
func (c *Composer) SelectArticles(articles []models.ArticleRecord, profile models.UserProfile) []models.ArticleRecord {
	scored := make([]models.ArticleRecord, len(articles))
	copy(scored, articles)

	sort.SliceStable(scored, func(i, j int) bool {
		si, sj := Score(scored[i], profile), Score(scored[j], profile)
		if si != sj {
			return si > sj
		}
		return len(scored[i].Excerpt) < len(scored[j].Excerpt)
	})

	if c.ArticleLimit > 0 && len(scored) > c.ArticleLimit {
		scored = scored[:c.ArticleLimit]
	}
	if c.PromptBudget > 0 {
		for len(scored) > 1 && renderedSize(scored) > c.PromptBudget {
			scored = scored[:len(scored)-1]
		}
	}
	return scored
}

func renderedSize(articles []models.ArticleRecord) int {
	total := 0
	for _, a := range articles {
		total += len(a.Title) + len(a.URL) + len(a.Excerpt) + 32
	}
	return total
}

// TruncateHistory keeps at most limit trailing turns, dropping oldest first.
// The kept window always starts on a user turn so alternation survives.
func (c *Composer) TruncateHistory(turns []models.Turn) []models.Turn {
	limit := c.HistoryLimit
	if limit <= 0 || len(turns) <= limit {
		return turns
	}
	kept := turns[len(turns)-limit:]
	if len(kept) > 0 && kept[0].Role == models.RoleAssistant {
		kept = kept[1:]
	}
	return kept
}

func profileBlock(profile models.UserProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", profile.DisplayName)
	fmt.Fprintf(&b, "Job Title: %s\n", profile.JobTitle)
	fmt.Fprintf(&b, "Interests: %s\n", profile.Interests)
	fmt.Fprintf(&b, "Tags: %s\n", strings.Join(profile.Tags, ", "))
	return b.String()
}

func renderArticles(articles []models.ArticleRecord) string {
	var b strings.Builder
	for _, a := range articles {
		fmt.Fprintf(&b, "Title: %s\nURL: %s\n", a.Title, a.URL)
		if a.Excerpt != "" {
			fmt.Fprintf(&b, "Excerpt: %s\n", a.Excerpt)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderSearchResults(results []search.Result) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("**Live Web Search Results:**\n\n")
	for i, r := range results {
		snippet := r.Snippet
		if len(snippet) > 250 {
			snippet = snippet[:250] + "..."
		}
		fmt.Fprintf(&b, "%d. **%s**\n   %s\n   Source: %s\n\n", i+1, r.Title, snippet, r.URL)
	}
	return b.String()
}

// ReportPrompt builds the curation prompt for a personalized trends report.
func (c *Composer) ReportPrompt(profile models.UserProfile, snap *models.Snapshot) (system, user string) {
	selected := c.SelectArticles(snap.Articles, profile)

	system = `You are an AI content curator. Your job is to review article titles and URLs
and identify which ones would be most relevant and interesting to the user based on their profile.

For each relevant article:
1. Include the title and URL
2. Add a brief 1-2 sentence commentary explaining why it's relevant
3. Be enthusiastic but professional

Only include articles that match the user's interests. If an article isn't relevant, skip it.

Format your response in markdown with clear sections.`

	user = fmt.Sprintf(`User Profile:
%s
Articles to review:
%s
Please analyze these articles and return only the ones relevant to this user.
For each relevant article, provide the title, URL, and a brief comment on why it's interesting.`,
		profileBlock(profile), renderArticles(selected))
	return system, user
}

// ChatSystem builds the chat system prompt with profile, tone, grounding
// articles and optional live search context.
func (c *Composer) ChatSystem(profile models.UserProfile, grounding []models.ArticleRecord, results []search.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are an AI assistant specialized in artificial intelligence trends, news, and technology.
You're chatting with %s, who works as a %s.

**User Profile:**
%s
**Your Personality and Communication Style:**
- Use a %s tone
- Personalize responses based on their role and interests
- Be conversational but informative
- Keep responses concise unless asked for more detail
`, profile.DisplayName, profile.JobTitle, profileBlock(profile), Tone(profile.JobTitle))

	if len(grounding) > 0 {
		b.WriteString("\n**Recent Articles From The Current Snapshot:**\n\n")
		b.WriteString(renderArticles(grounding))
	}
	if ctxBlock := renderSearchResults(results); ctxBlock != "" {
		b.WriteString("\n" + ctxBlock)
	}

	b.WriteString(`
**Important Instructions:**
- If web search results are provided above, use them as your primary source
- Always cite sources by mentioning article titles and providing URLs
- If asked about something you don't have current information on, say so
- For latest news queries, prioritize the web search results above`)
	return b.String()
}

// PostFromReport builds the LinkedIn post prompt grounded on a generated
// report.
func (c *Composer) PostFromReport(profile models.UserProfile, report string) (system, user string) {
	if len(report) > 3000 {
		report = report[:3000]
	}
	system = postSystemPrompt
	user = fmt.Sprintf(`User Profile:
%s
Report Content to Summarize:
%s

Create an engaging LinkedIn post that summarizes the key insights from this AI trends report.
Write as if %s, a %s, is sharing their perspective.
Make it personal, insightful, and engaging for a professional audience.`,
		profileBlock(profile), report, profile.DisplayName, profile.JobTitle)
	return system, user
}

// PostFromTopic builds the LinkedIn post prompt for a custom topic. It never
// touches the snapshot; search results are the only grounding.
func (c *Composer) PostFromTopic(profile models.UserProfile, topic string, results []search.Result) (system, user string) {
	system = postSystemPrompt
	user = fmt.Sprintf(`User Profile:
%s
Topic: %s

%s
Create an engaging LinkedIn post about %q based on the latest information above.
Write as if %s, a %s, is sharing their insights.
Make it personal, insightful, and engaging for a professional audience.`,
		profileBlock(profile), topic, renderSearchResults(results),
		topic, profile.DisplayName, profile.JobTitle)
	return system, user
}

// VideoKeywordsPrompt asks the backend for YouTube search keywords tailored
// to the profile.
func (c *Composer) VideoKeywordsPrompt(profile models.UserProfile) (system, user string) {
	system = `You generate YouTube search queries for AI and technology content.
Return ONLY the search keywords as a comma-separated list, nothing else.
Example: "machine learning tutorials, AI news 2024, deep learning applications"`

	user = fmt.Sprintf(`Based on this user profile, generate 3-5 specific search keywords for finding relevant AI/tech YouTube videos.

User Profile:
%s`, profileBlock(profile))
	return system, user
}

const postSystemPrompt = `You are a professional LinkedIn content creator specializing in AI and technology.
Your job is to create engaging, informative LinkedIn posts that drive engagement.

**Post Requirements:**
- Length: Approximately 300 words (2-3 short paragraphs)
- Style: Semi-casual, professional yet approachable
- Include 5-8 relevant hashtags at the end
- Start with a hook that grabs attention
- End with a call-to-action or engaging question
- Use line breaks for readability
- Write in first person when appropriate

**Content Strategy:**
- Highlight key insights and trends
- Make it relatable and actionable
- Show thought leadership
- Encourage discussion and engagement`
