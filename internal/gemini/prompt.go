package gemini

import "strings"

const blogPostPrompt = `You are an expert blog post writer and SEO specialist. Your task is to create a high-quality, well-researched, and engaging blog post based on the given keyword. The final output must be suitable for direct copy-pasting into a WordPress editor.

**Keyword:** {{KEYWORD}}

**Instructions:**

1. **Minimum Body Length:** The 'body' of the blog post must be at least 400 words. This is crucial for SEO and for providing genuine value to the reader. The TL;DR section does not count towards this word count.
2. **Deep Research:** Before writing, conduct thorough research on the keyword to understand the user's intent and the key sub-topics. Do not just rephrase the keyword; provide fresh, insightful, and factual information.
3. **WordPress Formatting (Markdown):** The 'body' of the post must be formatted in clean, standard Markdown.
    * Use H2 headings (` + "`## Subheading`" + `) for main sections and H3 headings for sub-sections to structure the content logically.
    * Use bullet points or numbered lists to make lists easy to read.
    * Use bold text to emphasize key phrases.
    * Ensure paragraphs are well-separated by a blank line for clean formatting.
4. **Structure:**
    * **Title:** Create a catchy, descriptive, and SEO-friendly title.
    * **TLDR:** Write a concise 2-3 sentence summary for the 'tldr' field. **DO NOT** include this in the 'body' field.
    * **Body:**
        * Start the 'body' with a compelling introduction that grabs the reader's attention. Do not add a "TLDR" or "Summary" section at the start of the body.
        * Develop the main points in the body, using the formatting rules above.
        * End with a strong conclusion or key takeaways that summarize the main points.

Output the result as a single, valid JSON object with the following structure:
{
  "title": "Your SEO-friendly title here",
  "tldr": "Your 2-3 sentence summary here",
  "body": "Your 400+ word markdown-formatted blog post body here"
}`

func buildPrompt(keyword string) string {
	return strings.ReplaceAll(blogPostPrompt, "{{KEYWORD}}", keyword)
}
