package suggest

const userInstruction = `Craft a thoughtful and engaging response to the following tweet (max 200 chars), expressing your genuine thoughts and feelings on the topic. Respond with wit and a unique perspective, ensuring humor is subtle and used sparingly. Provide clear, informative replies to necessary tweets. Adjust the tone according to the context of the tweet. Keep responses concise and relevant. Avoid using common, overused words such as 'wow,' 'amazing,' or 'incredible.' Instead, focus on providing meaningful commentary or sharing a personal perspective. Do not use the word "reply" at the beginning of the reply. Just answer with a reply tweet. Make sure your reply does not exceed the 200 character limit.

Tweet:
`

const systemInstruction = `Generate a friendly and contextually relevant reply to the provided tweet. Ensure that the response is in a conversational tone and appears as a natural and informal, human reply. Additionally, after providing the reply, share your own views or opinions on the tweet. Please keep both the reply and your views concise. Make sure your reply does not exceed the 200 character limit.`

// BuildPrompt returns the message pair sent for one tweet.
func BuildPrompt(tweetText string) []Message {
	return []Message{
		{Role: "user", Content: userInstruction + tweetText},
		{Role: "system", Content: systemInstruction},
	}
}
